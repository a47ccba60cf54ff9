package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/config"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
)

func TestVerifyPassesWhenGlobalIsMirroredInConfig(t *testing.T) {
	ctx := New("test", 64, image.NewMemView())
	addr := ir.Address(0x1000)
	g := ir.NewGlobal("g", ir.I32)
	g.Addr = &addr
	ctx.Module.AddGlobal(g)
	ctx.Config.Put(&config.Object{
		Name:    "g",
		Storage: config.Storage{Kind: config.StorageGlobal, Addr: addr},
	}, g)

	require.Empty(t, Verify(ctx))
}

func TestVerifyFlagsGlobalMissingConfigEntry(t *testing.T) {
	ctx := New("test", 64, image.NewMemView())
	addr := ir.Address(0x2000)
	g := ir.NewGlobal("g", ir.I32)
	g.Addr = &addr
	ctx.Module.AddGlobal(g)

	problems := Verify(ctx)
	require.Len(t, problems, 2) // missing ConfigStore entry + unbound handle
}

func TestVerifyFlagsAddressDisagreement(t *testing.T) {
	ctx := New("test", 64, image.NewMemView())
	addr := ir.Address(0x3000)
	other := ir.Address(0x4000)
	g := ir.NewGlobal("g", ir.I32)
	g.Addr = &addr
	ctx.Module.AddGlobal(g)
	ctx.Config.Put(&config.Object{
		Name:    "g",
		Storage: config.Storage{Kind: config.StorageGlobal, Addr: other},
	}, g)

	problems := Verify(ctx)
	require.Len(t, problems, 2)
	require.Contains(t, problems[1], "disagrees")
}

func TestPipelineRunsPassesInOrderAndStopsOnError(t *testing.T) {
	ctx := New("test", 64, image.NewMemView())
	var order []int
	failing := errFixture{}

	p := Pipeline{Passes: []Pass{
		func(ctx *Context) error { order = append(order, 1); return nil },
		func(ctx *Context) error { order = append(order, 2); return failing },
		func(ctx *Context) error { order = append(order, 3); return nil },
	}}

	err := p.Run(ctx)
	require.Equal(t, failing, err)
	require.Equal(t, []int{1, 2}, order)
}

type errFixture struct{}

func (errFixture) Error() string { return "boom" }
