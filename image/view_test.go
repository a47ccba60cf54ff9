package image

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/ir"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestHasDataOnAndSegmentOf(t *testing.T) {
	v := NewMemView()
	v.AddRegion(0x1000, le64(1), SegData)
	v.AddRegion(0x2000, le64(2), SegReadOnlyData)

	require.True(t, v.HasDataOn(0x1000))
	require.False(t, v.HasDataOn(0x9000))
	require.Equal(t, SegData, v.SegmentOf(0x1000))
	require.Equal(t, SegReadOnlyData, v.SegmentOf(0x2000))
	require.True(t, v.HasReadOnlyDataOn(0x2000))
	require.False(t, v.HasReadOnlyDataOn(0x1000))
}

func TestWordAtFallsBackTo32Bits(t *testing.T) {
	v := NewMemView()
	v.AddRegion(0x3000, le32(0xdeadbeef), SegData)

	w, ok := v.WordAt(0x3000)
	require.True(t, ok)
	require.Equal(t, uint64(0xdeadbeef), w)

	_, ok = v.WordAt(0x4000)
	require.False(t, ok)
}

func TestStringAtRequiresNULTerminator(t *testing.T) {
	v := NewMemView()
	v.AddRegion(0x5000, append([]byte("hi"), 0), SegData)
	v.AddRegion(0x6000, []byte("nonul"), SegData)

	s, ok := v.StringAt(0x5000)
	require.True(t, ok)
	require.Equal(t, "hi", s)

	_, ok = v.StringAt(0x6000)
	require.False(t, ok)
}

func TestConstantReadsIntegerMaskedToWidth(t *testing.T) {
	v := NewMemView()
	v.AddRegion(0x7000, le64(0x1ff), SegData)

	val, err := v.Constant(ir.I8, 0x7000, false)
	require.NoError(t, err)
	c := val.(*ir.Const)
	require.Equal(t, uint64(0xff), c.Bits)
}

func TestConstantReadsArrayOfBytes(t *testing.T) {
	v := NewMemView()
	v.AddRegion(0x8000, []byte{1, 2, 3, 4}, SegData)

	val, err := v.Constant(ir.NewArray(ir.I8, 4), 0x8000, false)
	require.NoError(t, err)
	agg := val.(*ir.ConstAggregate)
	require.Len(t, agg.Fields, 4)
	require.Equal(t, uint64(1), agg.Fields[0].(*ir.Const).Bits)
	require.Equal(t, uint64(4), agg.Fields[3].(*ir.Const).Bits)
}

func TestConstantOutOfRangeErrors(t *testing.T) {
	v := NewMemView()
	_, err := v.Constant(ir.I32, 0x9000, false)
	require.Error(t, err)
}
