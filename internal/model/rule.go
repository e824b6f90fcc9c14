package model

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// DetachedConstraint restricts a rule to attached buildings, detached
// buildings, or either. The integer values match the encoding used in the
// building type dictionary (0, 1, 2).
type DetachedConstraint int

// Detached constraint values.
const (
	AttachedOnly DetachedConstraint = 0
	DetachedOnly DetachedConstraint = 1
	EitherForm   DetachedConstraint = 2
)

// ParseDetachedConstraint accepts the numeric dictionary encoding or the
// names attached, detached and either.
func ParseDetachedConstraint(s string) (DetachedConstraint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "0.0", "attached", "attached-only":
		return AttachedOnly, nil
	case "1", "1.0", "detached", "detached-only":
		return DetachedOnly, nil
	case "2", "2.0", "either", "any":
		return EitherForm, nil
	}
	return 0, eris.Errorf("unknown detached constraint %q (want 0/attached, 1/detached, 2/either)", s)
}

// Valid reports whether d is one of the three allowed values.
func (d DetachedConstraint) Valid() bool {
	return d == AttachedOnly || d == DetachedOnly || d == EitherForm
}

func (d DetachedConstraint) String() string {
	switch d {
	case AttachedOnly:
		return "attached"
	case DetachedOnly:
		return "detached"
	case EitherForm:
		return "either"
	}
	return "invalid"
}

// Rule is one entry of the building type dictionary: the physical criteria a
// building must meet to plausibly belong to a census size category.
type Rule struct {
	Name          string             `json:"name"`
	MinFloors     int                `json:"min_floors"`
	MinLivingArea float64            `json:"min_living_area"`
	MaxLivingArea float64            `json:"max_living_area"`
	Detached      DetachedConstraint `json:"detached"`
}

// Validate checks the rule for configuration defects.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewRuleConfigError("", eris.New("rule name is empty"))
	}
	if !r.Detached.Valid() {
		return NewRuleConfigError(r.Name, eris.Errorf("detached constraint %d outside 0/1/2", int(r.Detached)))
	}
	if math.IsNaN(r.MinLivingArea) || math.IsNaN(r.MaxLivingArea) {
		return NewRuleConfigError(r.Name, eris.New("living area bound is NaN"))
	}
	if r.MinLivingArea > r.MaxLivingArea {
		return NewRuleConfigError(r.Name, eris.Errorf("min_living_area %.2f > max_living_area %.2f", r.MinLivingArea, r.MaxLivingArea))
	}
	if r.MinFloors < 0 {
		return NewRuleConfigError(r.Name, eris.Errorf("min_floors %d is negative", r.MinFloors))
	}
	return nil
}

// Matches reports whether b satisfies every predicate of the rule. The
// detached predicate is skipped entirely for EitherForm.
func (r Rule) Matches(b *Building) bool {
	if b.FloorCount < r.MinFloors {
		return false
	}
	if b.LivingArea < r.MinLivingArea || b.LivingArea > r.MaxLivingArea {
		return false
	}
	switch r.Detached {
	case AttachedOnly:
		return !b.Detached
	case DetachedOnly:
		return b.Detached
	}
	return true
}

// RuleSet is the ordered rule table. Position is priority: lower positions
// claim ambiguous buildings first, and residual assignment walks the same
// order (smallest expected building size first). A RuleSet is never
// reordered after construction.
type RuleSet struct {
	rules []Rule
	index map[string]int
}

// NewRuleSet validates rules and freezes their order.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, NewRuleConfigError("", eris.New("rule table is empty"))
	}
	rs := &RuleSet{
		rules: make([]Rule, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for i, r := range rules {
		r.Name = strings.TrimSpace(r.Name)
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if prev, dup := rs.index[r.Name]; dup {
			return nil, NewRuleConfigError(r.Name, eris.Errorf("duplicate rule name (positions %d and %d)", prev, i))
		}
		rs.rules[i] = r
		rs.index[r.Name] = i
	}
	return rs, nil
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// At returns the rule at priority position i.
func (rs *RuleSet) At(i int) Rule { return rs.rules[i] }

// Rules returns a copy of the rules in priority order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Names returns rule names in priority order.
func (rs *RuleSet) Names() []string {
	names := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		names[i] = r.Name
	}
	return names
}

// Index returns the priority position of the named rule.
func (rs *RuleSet) Index(name string) (int, bool) {
	i, ok := rs.index[name]
	return i, ok
}

// Subset returns a RuleSet restricted to names, keeping the original
// priority order regardless of the order names are given in.
func (rs *RuleSet) Subset(names []string) (*RuleSet, error) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := rs.index[n]; !ok {
			return nil, NewRuleConfigError(n, eris.New("unknown rule in filter"))
		}
		keep[n] = true
	}
	var rules []Rule
	for _, r := range rs.rules {
		if keep[r.Name] {
			rules = append(rules, r)
		}
	}
	return NewRuleSet(rules)
}
