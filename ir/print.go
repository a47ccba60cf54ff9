package ir

// This file implements the String() methods for every Value and
// Instruction kind, following the teacher's per-kind dispatch style
// (ssa/print.go): rather than one big switch, each concrete type gets its
// own String() method, so adding a new instruction kind can never forget
// to teach a central switch about it — a missing method is a compile
// error, not a silent fallthrough.

import (
	"fmt"
	"strings"
)

func (g *GlobalObject) String() string {
	if g.Addr != nil {
		return fmt.Sprintf("@%s (%s)", g.name, g.Typ)
	}
	return fmt.Sprintf("@%s", g.name)
}

func (a *Argument) String() string {
	return fmt.Sprintf("arg %s : %s", a.name, a.Typ)
}

func (f *Function) String() string {
	return fmt.Sprintf("func %s %s", f.Name_, f.Sig)
}

func (c *Const) String() string {
	return fmt.Sprintf("%d:%s", int64(c.Bits), c.Typ)
}

func (c *ConstAggregate) String() string {
	var parts []string
	for _, f := range c.Fields {
		parts = append(parts, f.Name())
	}
	return fmt.Sprintf("{%s}:%s", strings.Join(parts, ", "), c.Typ)
}

func (c *ConstExpr) String() string {
	return fmt.Sprintf("%s %s <- %s", c.Op, c.Typ, c.X.Name())
}

func (u *Undef) String() string { return fmt.Sprintf("undef:%s", u.Typ) }

func (a *Alloca) String() string {
	return fmt.Sprintf("alloca %s (%s)", a.Elem, a.name)
}

func (l *Load) String() string {
	return fmt.Sprintf("load %s, %s", l.Addr.Type(), l.Addr.Name())
}

func (s *Store) String() string {
	return fmt.Sprintf("store %s, %s", s.Val.Name(), s.Addr.Name())
}

func (c *BitCast) String() string {
	return fmt.Sprintf("bitcast %s <- %s (%s)", c.Typ, c.X.Type(), c.X.Name())
}

func (c *IntToPtr) String() string {
	return fmt.Sprintf("inttoptr %s <- %s (%s)", c.Typ, c.X.Type(), c.X.Name())
}

func (c *PtrToInt) String() string {
	return fmt.Sprintf("ptrtoint %s <- %s (%s)", c.Typ, c.X.Type(), c.X.Name())
}

func (c *IntegerCast) String() string {
	return fmt.Sprintf("icast %s <- %s (%s)", c.Typ, c.X.Type(), c.X.Name())
}

func (c *FPCast) String() string {
	return fmt.Sprintf("fpcast %s <- %s (%s)", c.Typ, c.X.Type(), c.X.Name())
}

func (e *ExtractValue) String() string {
	return fmt.Sprintf("extractvalue %s, %d", e.X.Name(), e.Index)
}

func (i *InsertValue) String() string {
	return fmt.Sprintf("insertvalue %s, %s, %d", i.X.Name(), i.Val.Name(), i.Index)
}

func (g *GEP) String() string {
	return fmt.Sprintf("gep %s, %v", g.Addr.Name(), g.Indices)
}

func (c *Call) String() string {
	var args []string
	for _, a := range c.Args {
		args = append(args, a.Name())
	}
	return fmt.Sprintf("call %s(%s)", c.Callee.Name(), strings.Join(args, ", "))
}

func (b *Branch) String() string {
	name := "?"
	if b.Target != nil {
		name = fmt.Sprintf("block%d", b.Target.Index)
	}
	return "br " + name
}

func (c *CondBranch) String() string {
	t, f := "?", "?"
	if c.TTrue != nil {
		t = fmt.Sprintf("block%d", c.TTrue.Index)
	}
	if c.TFalse != nil {
		f = fmt.Sprintf("block%d", c.TFalse.Index)
	}
	return fmt.Sprintf("br %s, %s, %s", c.Cond.Name(), t, f)
}

func (r *Return) String() string {
	if r.Val == nil {
		return "ret void"
	}
	return "ret " + r.Val.Name()
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%s %s, %s", b.Op, b.X.Name(), b.Y.Name())
}

func (u *UnOp) String() string {
	op := "neg"
	if u.Not {
		op = "not"
	}
	return fmt.Sprintf("%s %s", op, u.X.Name())
}

var icmpNames = [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}

func (p ICmpPred) String() string {
	if int(p) < len(icmpNames) {
		return icmpNames[p]
	}
	return "badpred"
}

func (c *ICmp) String() string {
	return fmt.Sprintf("icmp %s %s, %s", c.Pred, c.X.Name(), c.Y.Name())
}
