package materialize

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
)

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestGetGlobalVariableIdempotent(t *testing.T) {
	img := image.NewMemView()
	img.AddRegion(0x1000, le64(42), image.SegData)
	ctx := core.New("test", 64, img)
	mz := New(ctx, ArchGeneric)

	g1, err := mz.GetGlobalVariable(0x1000, false, "g")
	require.NoError(t, err)
	require.NotNil(t, g1)

	g2, err := mz.GetGlobalVariable(0x1000, false, "g")
	require.NoError(t, err)
	require.Same(t, g1, g2)
}

func TestGetGlobalVariableCycleSubstitutesWordRead(t *testing.T) {
	img := image.NewMemView()
	// The bytes at 0x2000 form a pointer back to 0x2000 itself.
	img.AddRegion(0x2000, le64(0x2000), image.SegData)
	ctx := core.New("test", 64, img)
	ctx.Module.PointerBits = 64

	mz := New(ctx, ArchGeneric)
	mz.DebugInfoType = func(addr ir.Address) (ir.Type, bool) {
		return ir.NewPointer(ir.I64), true
	}

	g, err := mz.GetGlobalVariable(0x2000, false, "cyc")
	require.NoError(t, err)
	require.NotNil(t, g)
	require.Equal(t, 1, mz.Stats.InitializerCycles)

	c, ok := g.Initializer.(*ir.Const)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), c.Bits)

	problems := core.Verify(ctx)
	require.Empty(t, problems)
}

func TestGetGlobalVariableAddressNotMaterializable(t *testing.T) {
	img := image.NewMemView()
	ctx := core.New("test", 64, img)
	mz := New(ctx, ArchGeneric)

	g, err := mz.GetGlobalVariable(0xdead, false, "nope")
	require.NoError(t, err)
	require.Nil(t, g)
}

func TestGetStackSlotReuseAndNaming(t *testing.T) {
	img := image.NewMemView()
	ctx := core.New("test", 64, img)
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	ret := ir.NewReturn(nil)
	fn.Entry().AppendInst(ret)

	mz := New(ctx, ArchGeneric)

	a1 := mz.GetStackSlot(fn, -16, ir.I32, "x")
	require.Equal(t, "x_-16", a1.Name())

	a2 := mz.GetStackSlot(fn, -16, ir.I32, "x")
	require.Same(t, a1, a2)
}

func TestGetStackSlotFallsBackToABIWordType(t *testing.T) {
	img := image.NewMemView()
	ctx := core.New("test", 64, img)
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	ret := ir.NewReturn(nil)
	fn.Entry().AppendInst(ret)

	mz := New(ctx, ArchGeneric)
	fnType := ir.NewFunc(ir.Void, nil, false)
	slot := mz.GetStackSlot(fn, -8, fnType, "bad")
	require.True(t, ir.Equal(slot.Elem, ir.I64))
}
