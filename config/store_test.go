package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binlift/irmod/ir"
)

func TestPutAndRebindTracksCurrentValue(t *testing.T) {
	s := NewStore()
	addr := ir.Address(0x4000)
	obj := &Object{Name: "g", Storage: Storage{Kind: StorageGlobal, Addr: addr}, TypeSource: "i32"}

	g := ir.NewGlobal("g", ir.I32)
	h := s.Put(obj, g)

	v, ok := s.ValueOf(h)
	require.True(t, ok)
	require.Same(t, g, v)

	back, ok := s.HandleOf(g)
	require.True(t, ok)
	require.Equal(t, h, back)

	byAddr, ok := s.GetByAddr(addr)
	require.True(t, ok)
	require.Same(t, obj, byAddr)

	gPrime := ir.NewGlobal("g", ir.I64)
	s.Rebind(h, gPrime)

	_, stillTracked := s.HandleOf(g)
	require.False(t, stillTracked)
	v2, ok := s.ValueOf(h)
	require.True(t, ok)
	require.Same(t, gPrime, v2)
}

func TestGetStackSlotKeyedByFunctionAndOffset(t *testing.T) {
	s := NewStore()
	obj := &Object{Name: "x", Storage: Storage{Kind: StorageStack, FuncName: "f", Offset: -16}}
	s.Put(obj, nil)

	found, ok := s.GetStackSlot("f", -16)
	require.True(t, ok)
	require.Same(t, obj, found)

	_, ok = s.GetStackSlot("f", -24)
	require.False(t, ok)
}

func TestDeleteRemovesEveryIndex(t *testing.T) {
	s := NewStore()
	addr := ir.Address(0x5000)
	obj := &Object{Name: "g", Storage: Storage{Kind: StorageGlobal, Addr: addr}}
	g := ir.NewGlobal("g", ir.I32)
	h := s.Put(obj, g)

	s.Delete(h)

	_, ok := s.Get(h)
	require.False(t, ok)
	_, ok = s.GetByAddr(addr)
	require.False(t, ok)
	_, ok = s.HandleOf(g)
	require.False(t, ok)
}

func TestPutFunctionAndDeleteFunction(t *testing.T) {
	s := NewStore()
	s.PutFunction(&FunctionEntry{Name: "main", CallConv: "cdecl"})

	entry, ok := s.GetFunction("main")
	require.True(t, ok)
	require.Equal(t, "cdecl", entry.CallConv)

	s.DeleteFunction("main")
	_, ok = s.GetFunction("main")
	require.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore()
	addr := ir.Address(0x1000)
	s.Put(&Object{
		Name:       "g",
		Storage:    Storage{Kind: StorageGlobal, Addr: addr},
		TypeSource: "i32",
	}, nil)
	s.Put(&Object{
		Name:       "x",
		Storage:    Storage{Kind: StorageStack, FuncName: "f", Offset: -8},
		TypeSource: "i64",
	}, nil)
	fnAddr := ir.Address(0x2000)
	s.PutFunction(&FunctionEntry{Addr: &fnAddr, Name: "f", CallConv: "cdecl"})

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	g, ok := loaded.GetByAddr(addr)
	require.True(t, ok)
	require.Equal(t, "g", g.Name)
	require.Equal(t, "i32", g.TypeSource)

	slot, ok := loaded.GetStackSlot("f", -8)
	require.True(t, ok)
	require.Equal(t, "x", slot.Name)

	fn, ok := loaded.GetFunction("f")
	require.True(t, ok)
	require.Equal(t, "cdecl", fn.CallConv)
	require.Equal(t, fnAddr, *fn.Addr)
}

func TestMatchCryptoPatternRecognizesAESSBoxPrefix(t *testing.T) {
	data := []byte{
		0x63, 0x7c, 0x77, 0x7b, 0xf2, 0x6b, 0x6f, 0xc5,
		0x30, 0x01, 0x67, 0x2b, 0xfe, 0xd7, 0xab, 0x76,
		0xca, 0x82, 0xc9, 0x7d,
	}
	p, ok := MatchCryptoPattern(data)
	require.True(t, ok)
	require.Equal(t, "aes_sbox", p.Name)

	_, ok = MatchCryptoPattern([]byte{0, 1, 2, 3})
	require.False(t, ok)
}
