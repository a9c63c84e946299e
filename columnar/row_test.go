package columnar

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-stanload/param"
)

func TestSlotType(t *testing.T) {
	tests := []struct {
		kind param.Kind
		n    int
		want reflect.Type
	}{
		{param.Float, 1, reflect.TypeOf(float64(0))},
		{param.Int, 1, reflect.TypeOf(int32(0))},
		{param.Float, 3, reflect.TypeOf([3]float64{})},
		{param.Int, 2, reflect.TypeOf([2]int32{})},
		{param.String, 7, reflect.TypeOf("")},
	}
	for _, tt := range tests {
		got, err := slotType(tt.kind, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v[%d]", tt.kind, tt.n)
	}

	_, err := slotType(param.Float, -1)
	assert.Error(t, err)
	_, err = slotType(param.Kind(9), 1)
	assert.Error(t, err)
}

func TestRowSlots(t *testing.T) {
	row, err := NewRow([]Column{
		{Name: "mu", Kind: param.Float},
		{Name: "k", Kind: param.Int, Size: 1},
		{Name: "theta", Kind: param.Float, Size: 3},
		{Name: "tag", Kind: param.String, Size: 4},
	})
	require.NoError(t, err)

	require.NoError(t, row.SetFloat(0, 0, 1.25))
	require.NoError(t, row.SetFloat(1, 0, 2.9))
	for i, v := range []float64{1, 2, 3} {
		require.NoError(t, row.SetFloat(2, i, v))
	}
	require.NoError(t, row.SetString(3, "abcd"))

	assert.Equal(t, 1.25, row.Value(0))
	assert.Equal(t, int32(2), row.Value(1))
	assert.Equal(t, [3]float64{1, 2, 3}, row.Value(2))
	assert.Equal(t, "abcd", row.Value(3))
	assert.Equal(t, 3, row.Len(2))
	assert.Equal(t, 1, row.Len(0))

	// Slots are stable: the address seen by a backend sees later writes.
	p := row.Addr(0).(*float64)
	require.NoError(t, row.SetInt(0, 0, 7))
	assert.Equal(t, 7.0, *p)

	assert.Error(t, row.SetFloat(2, 3, 0))
	assert.Error(t, row.SetFloat(0, 1, 0))
	assert.Error(t, row.SetFloat(3, 0, 0))
	assert.Error(t, row.SetString(0, "x"))
}

func TestRowInt32Range(t *testing.T) {
	row, err := NewRow([]Column{
		{Name: "seed", Kind: param.Int},
		{Name: "x", Kind: param.Float},
	})
	require.NoError(t, err)

	assert.ErrorContains(t, row.SetInt(0, 0, 3000000000), "overflows int32")
	assert.ErrorContains(t, row.SetInt(0, 0, -3000000000), "overflows int32")
	assert.ErrorContains(t, row.SetFloat(0, 0, 3e9), "overflows int32")
	assert.Error(t, row.SetFloat(0, 0, math.NaN()))

	require.NoError(t, row.SetInt(0, 0, math.MaxInt32))
	assert.Equal(t, int32(math.MaxInt32), row.Value(0))
	require.NoError(t, row.SetFloat(0, 0, -2147483648.5))
	assert.Equal(t, int32(math.MinInt32), row.Value(0))

	require.NoError(t, row.SetInt(1, 0, 3000000000))
	assert.Equal(t, 3e9, row.Value(1))
}

func TestNewRowDuplicate(t *testing.T) {
	_, err := NewRow([]Column{{Name: "a"}, {Name: "a", Kind: param.Int}})
	assert.ErrorContains(t, err, "duplicate")
}
