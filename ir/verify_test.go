package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyCleanModuleHasNoProblems(t *testing.T) {
	m := NewModule("test", 64)
	fn := NewFunction("f", NewFunc(Void, nil, false))
	m.AddFunction(fn)
	fn.Entry().AppendInst(NewReturn(nil))

	require.Empty(t, Verify(m))
}

func TestVerifyFlagsDuplicateGlobalAddress(t *testing.T) {
	m := NewModule("test", 64)
	addr := Address(0x1000)
	g1 := NewGlobal("g", I32)
	g1.Addr = &addr
	g2 := &GlobalObject{Typ: NewPointer(I32)}
	g2.name = "g"
	g2.Addr = &addr
	m.AddGlobal(g1)
	m.Globals = append(m.Globals, g2)

	problems := Verify(m)
	require.Len(t, problems, 1)
}

func TestVerifyFlagsSelfReferentialInitializer(t *testing.T) {
	m := NewModule("test", 64)
	addr := Address(0x2000)
	g := NewGlobal("cyclic", NewPointer(I32))
	g.Addr = &addr
	g.Initializer = g
	m.AddGlobal(g)

	problems := Verify(m)
	require.Len(t, problems, 1)
}

func TestVerifyFlagsAllocaAfterNonAllocaInEntry(t *testing.T) {
	m := NewModule("test", 64)
	fn := NewFunction("f", NewFunc(Void, nil, false))
	m.AddFunction(fn)
	entry := fn.Entry()
	entry.AppendInst(NewReturn(nil))
	entry.AppendInst(NewAlloca("late", I32))

	problems := Verify(m)
	require.Len(t, problems, 1)
}

func TestVerifyFlagsUnreachableBlock(t *testing.T) {
	m := NewModule("test", 64)
	fn := NewFunction("f", NewFunc(Void, nil, false))
	m.AddFunction(fn)
	entry := fn.Entry()
	entry.AppendInst(NewReturn(nil))

	orphan := fn.NewBlock()
	orphan.AppendInst(NewReturn(nil))

	problems := Verify(m)
	require.Len(t, problems, 1)
}

func TestVerifyAcceptsReachableBranchTarget(t *testing.T) {
	m := NewModule("test", 64)
	fn := NewFunction("f", NewFunc(Void, nil, false))
	m.AddFunction(fn)
	entry := fn.Entry()
	target := fn.NewBlock()
	AddEdge(entry, target)
	entry.AppendInst(NewBranch(target))
	target.AppendInst(NewReturn(nil))

	require.Empty(t, Verify(m))
}
