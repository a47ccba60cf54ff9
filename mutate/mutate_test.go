package mutate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/config"
	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
)

func newTestCtx() *core.Context {
	img := image.NewMemView()
	return core.New("test", 64, img)
}

// TestChangeObjectTypeRetypesStoreAndLoadUsers exercises the invariant of
// spec.md §8 property 1: every user of the old alloca type-checks against
// the new one, via the Store/Load retyping paths.
func TestChangeObjectTypeRetypesStoreAndLoadUsers(t *testing.T) {
	ctx := newTestCtx()
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	entry := fn.Entry()

	slot := ir.NewAlloca("x", ir.I32)
	entry.PrependAlloca(slot)

	ret := ir.NewReturn(nil)
	entry.AppendInst(ret)

	store := ir.NewStore(slot, ir.NewConstInt(ir.I32, 7))
	ir.InsertBefore(ret, store)
	ir.AttachUses(store)

	load := ir.NewLoad("v", slot)
	ir.InsertBefore(ret, load)
	ir.AttachUses(load)

	mut := New(ctx)
	vPrime, err := mut.ChangeObjectType(slot, ir.NewPointer(ir.I64), nil, nil, false)
	require.NoError(t, err)
	require.True(t, ir.Equal(vPrime.Type(), ir.NewPointer(ir.I64)))

	require.Equal(t, vPrime, store.Addr)
	require.True(t, ir.IsInteger(store.Val.Type()))
	require.Empty(t, *slot.Referrers())

	problems := core.Verify(ctx)
	require.Empty(t, problems)
}

// TestChangeObjectTypeHandlesSelfStore covers the `*v = v` edge case the
// retypeStore doc comment calls out: a single Store whose Addr and Val
// operands are both the object being retyped.
func TestChangeObjectTypeHandlesSelfStore(t *testing.T) {
	ctx := newTestCtx()
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	entry := fn.Entry()

	slot := ir.NewAlloca("p", ir.I32)
	entry.PrependAlloca(slot)

	ret := ir.NewReturn(nil)
	entry.AppendInst(ret)

	selfStore := ir.NewStore(slot, slot)
	ir.InsertBefore(ret, selfStore)
	ir.AttachUses(selfStore)

	mut := New(ctx)
	vPrime, err := mut.ChangeObjectType(slot, ir.NewPointer(ir.I64), nil, nil, false)
	require.NoError(t, err)

	require.Same(t, vPrime, selfStore.Addr)
	require.True(t, ir.Equal(selfStore.Val.Type(), ir.I64))
	require.NotSame(t, vPrime, selfStore.Val)

	problems := core.Verify(ctx)
	require.Empty(t, problems)
}

func TestChangeObjectTypeArgumentRebuildsSignature(t *testing.T) {
	ctx := newTestCtx()
	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, []ir.Type{ir.I32}, false))
	ctx.Module.AddFunction(fn)
	entry := fn.Entry()
	ret := ir.NewReturn(nil)
	entry.AppendInst(ret)

	arg := fn.Params[0]
	user := ir.NewUnOp("neg", false, arg, ir.I32)
	ir.InsertBefore(ret, user)
	ir.AttachUses(user)

	mut := New(ctx)
	vPrime, err := mut.ChangeObjectType(arg, ir.I64, nil, nil, false)
	require.NoError(t, err)
	require.Same(t, fn.Params[0], vPrime)
	require.NotEqual(t, arg, user.X)
}

func TestChangeObjectTypeGlobalUpdatesConfigStore(t *testing.T) {
	ctx := newTestCtx()
	addr := ir.Address(0x4000)
	g := ir.NewGlobal("g_4000", ir.I32)
	g.Addr = &addr
	ctx.Module.AddGlobal(g)

	handle := ctx.Config.Put(&config.Object{
		Storage: config.Storage{Kind: config.StorageGlobal, Addr: addr},
	}, g)

	fn := ir.NewFunction("f", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	ret := ir.NewReturn(nil)
	fn.Entry().AppendInst(ret)

	load := ir.NewLoad("lv", g)
	ir.InsertBefore(ret, load)
	ir.AttachUses(load)

	mut := New(ctx)
	vPrime, err := mut.ChangeObjectType(g, ir.NewPointer(ir.I64), ir.NewConstInt(ir.I64, 0), nil, false)
	require.NoError(t, err)

	newHandle, ok := ctx.Config.HandleOf(vPrime)
	require.True(t, ok)
	require.Equal(t, handle, newHandle)

	obj, ok := ctx.Config.Get(handle)
	require.True(t, ok)
	require.Equal(t, "i64", obj.TypeSource)

	found, ok := ctx.Module.GlobalAt(addr)
	require.True(t, ok)
	require.Same(t, vPrime, found)
}
