package typeconv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/ir"
)

func newTestFunction() (*ir.Function, *ir.BasicBlock, *ir.Return) {
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	b := fn.Entry()
	ret := ir.NewReturn(nil)
	b.AppendInst(ret)
	return fn, b, ret
}

func TestConvertPointerIntPointerRoundTrip(t *testing.T) {
	_, _, ret := newTestFunction()
	c := New(64)

	ptrT := ir.NewPointer(ir.I32)
	g := ir.NewGlobal("g", ir.I32)
	p := InsertionPoint{Anchor: ret}

	asInt, err := c.Convert(g, ir.I64, p, ModeLive)
	require.NoError(t, err)
	require.True(t, ir.Equal(asInt.Type(), ir.I64))
	_, ok := asInt.(*ir.PtrToInt)
	require.True(t, ok)

	back, err := c.Convert(asInt, ptrT, p, ModeLive)
	require.NoError(t, err)
	require.True(t, ir.Equal(back.Type(), ptrT))
	_, ok = back.(*ir.IntToPtr)
	require.True(t, ok)
}

func TestConvertAggregateLoadPeel(t *testing.T) {
	fn, entry, ret := newTestFunction()
	_ = fn
	aggT := ir.NewStruct([]ir.Type{ir.I32, ir.I32}, false)
	slot := ir.NewAlloca("s", aggT)
	entry.PrependAlloca(slot)
	ld := ir.NewLoad("v", slot)
	ir.InsertBefore(ret, ld)
	ir.AttachUses(ld)

	c := New(64)
	p := InsertionPoint{Anchor: ret}

	out, err := c.Convert(ld, ir.I32, p, ModeLive)
	require.NoError(t, err)
	require.True(t, ir.Equal(out.Type(), ir.I32))

	newLoad, ok := out.(*ir.Load)
	require.True(t, ok, "expected a synthesized Load, got %T", out)
	bc, ok := newLoad.Addr.(*ir.BitCast)
	require.True(t, ok, "expected load address to be a bitcast pointer")
	require.True(t, ir.Equal(bc.Type(), ir.NewPointer(ir.I32)))
}

func TestConvertFloatToIntWidthFallback(t *testing.T) {
	_, _, ret := newTestFunction()
	c := New(64)
	p := InsertionPoint{Anchor: ret}

	f := ir.NewGlobal("fval", ir.F32)
	load := ir.NewLoad("fv", f)
	ir.InsertBefore(ret, load)
	ir.AttachUses(load)

	out, err := c.Convert(load, ir.I24, p, ModeLive)
	require.NoError(t, err)
	require.True(t, ir.Equal(out.Type(), ir.I24))

	cast, ok := out.(*ir.IntegerCast)
	require.True(t, ok, "expected final IntegerCast to i24, got %T", out)
	bc, ok := cast.X.(*ir.BitCast)
	require.True(t, ok, "expected intermediate bitcast to i32")
	require.True(t, ir.Equal(bc.Type(), ir.I32))
	fp, ok := bc.X.(*ir.FPCast)
	require.True(t, ok, "expected fpcast to f32 before the i32 bitcast")
	require.True(t, ir.Equal(fp.Type(), ir.F32))
}

func TestConvertConstExprModeBuildsChainWithoutBlockInsertion(t *testing.T) {
	c := New(64)
	g := ir.NewGlobal("g", ir.I32)
	out, err := c.Convert(g, ir.I64, InsertionPoint{}, ModeConstExpr)
	require.NoError(t, err)

	ce, ok := out.(*ir.ConstExpr)
	require.True(t, ok)
	require.Equal(t, "ptrtoint", ce.Op)
	require.True(t, ir.Equal(ce.Typ, ir.I64))
}

func TestConvertScalarToAggregateWrapsField0(t *testing.T) {
	_, _, ret := newTestFunction()
	c := New(64)
	p := InsertionPoint{Anchor: ret}

	v := ir.NewConstInt(ir.I32, 7)
	aggT := ir.NewArray(ir.I32, 4)

	out, err := c.Convert(v, aggT, p, ModeLive)
	require.NoError(t, err)
	require.True(t, ir.Equal(out.Type(), aggT))

	iv, ok := out.(*ir.InsertValue)
	require.True(t, ok)
	require.Equal(t, 0, iv.Index)
	require.Equal(t, v, iv.Val)
}

func TestConvertSameTypeIsNoop(t *testing.T) {
	c := New(64)
	v := ir.NewConstInt(ir.I32, 1)
	out, err := c.Convert(v, ir.I32, InsertionPoint{}, ModeLive)
	require.NoError(t, err)
	require.Same(t, v, out)
}
