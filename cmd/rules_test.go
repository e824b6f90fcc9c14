package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-disagg/internal/model"
)

func TestFormatRules(t *testing.T) {
	rs, err := model.NewRuleSet([]model.Rule{
		{Name: "siz_1_free", MinFloors: 1, MinLivingArea: 50, MaxLivingArea: 250.5, Detached: model.DetachedOnly},
		{Name: "siz_13+_apart", MinFloors: 5, MinLivingArea: 800, MaxLivingArea: math.Inf(1), Detached: model.EitherForm},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	formatRules(&buf, rs)
	out := buf.String()

	assert.Contains(t, out, "POS")
	assert.Contains(t, out, "siz_1_free")
	assert.Contains(t, out, "250.5")
	assert.Contains(t, out, "detached")
	assert.Contains(t, out, "inf")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("siz_1_free")), bytes.Index(buf.Bytes(), []byte("siz_13+_apart")))
}

func TestFormatArea(t *testing.T) {
	assert.Equal(t, "inf", formatArea(math.Inf(1)))
	assert.Equal(t, "150", formatArea(150))
	assert.Equal(t, "99.5", formatArea(99.5))
}
