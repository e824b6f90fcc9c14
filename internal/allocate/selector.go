package allocate

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-disagg/internal/model"
)

// SurplusOrder names the strategy used to pick which matching buildings get
// a rule when more buildings match than the census reports.
type SurplusOrder string

// Surplus selection strategies.
const (
	// OrderID picks the lowest building identifiers (numeric when both
	// identifiers are integers, lexical otherwise).
	OrderID SurplusOrder = "id"
	// OrderInput picks the first buildings in pool order. It reproduces
	// outputs of the original dictionary-driven script.
	OrderInput SurplusOrder = "input"
	// OrderRandom draws a seeded sample. The draw depends only on the seed,
	// the cell and the rule, so runs are repeatable at any parallelism.
	OrderRandom SurplusOrder = "random"
)

// Selector chooses n of matches to receive a rule and returns the chosen
// buildings and the rest, each in pool order.
type Selector func(cellID string, ruleIdx int, matches []*model.Building, n int) (picked, rest []*model.Building)

// NewSelector returns the Selector for order.
func NewSelector(order SurplusOrder, seed uint64) (Selector, error) {
	switch order {
	case OrderID, "":
		return selectByID, nil
	case OrderInput:
		return selectPrefix, nil
	case OrderRandom:
		return func(cellID string, ruleIdx int, matches []*model.Building, n int) ([]*model.Building, []*model.Building) {
			return selectRandom(seed, cellID, ruleIdx, matches, n)
		}, nil
	}
	return nil, eris.Errorf("allocate: unknown surplus order %q (want id, input or random)", order)
}

func selectPrefix(_ string, _ int, matches []*model.Building, n int) ([]*model.Building, []*model.Building) {
	return matches[:n], matches[n:]
}

func selectByID(_ string, _ int, matches []*model.Building, n int) ([]*model.Building, []*model.Building) {
	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lessID(matches[order[a]].ID, matches[order[b]].ID)
	})
	chosen := make([]bool, len(matches))
	for _, i := range order[:n] {
		chosen[i] = true
	}
	return split(matches, chosen)
}

func selectRandom(seed uint64, cellID string, ruleIdx int, matches []*model.Building, n int) ([]*model.Building, []*model.Building) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(cellID))
	rng := rand.New(rand.NewPCG(seed, h.Sum64()^uint64(ruleIdx)))

	perm := rng.Perm(len(matches))
	chosen := make([]bool, len(matches))
	for _, i := range perm[:n] {
		chosen[i] = true
	}
	return split(matches, chosen)
}

func split(matches []*model.Building, chosen []bool) (picked, rest []*model.Building) {
	for i, b := range matches {
		if chosen[i] {
			picked = append(picked, b)
		} else {
			rest = append(rest, b)
		}
	}
	return picked, rest
}

// lessID orders integer identifiers numerically (so "9" sorts before "10")
// and ahead of all other identifiers, which sort lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
