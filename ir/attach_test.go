package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachAndDetachUsesUpdatesEveryOperand(t *testing.T) {
	fn := NewFunction("f", NewFunc(Void, nil, false))
	entry := fn.Entry()

	a := NewAlloca("a", I32)
	entry.PrependAlloca(a)

	s := NewStore(a, NewConstInt(I32, 1))
	entry.AppendInst(s)
	AttachUses(s)

	require.Equal(t, []Instruction{s}, *a.Referrers())

	DetachUses(s)
	require.Empty(t, *a.Referrers())
}
