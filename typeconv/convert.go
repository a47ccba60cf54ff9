// Package typeconv implements TypeConverter, the single place this module
// knows how to turn a Value of one Type into an equivalent Value of another
// Type (spec.md §4.1). Every other package that needs to change a value's
// type — ObjectMutator retyping a user, AddressMaterializer picking an
// initializer representation — goes through Convert rather than building
// casts by hand, so the decision table lives in exactly one place.
package typeconv

import (
	"github.com/pkg/errors"

	"github.com/binlift/irmod/ir"
)

// ErrUnsupportedConversion is returned when no entry of the decision table
// covers a (source, target) type pair (spec.md §4.1: "any (source, target)
// pair and 2 modes not covered by the table above is an error, not a
// fallback").
var ErrUnsupportedConversion = errors.New("typeconv: unsupported conversion")

// Mode selects between building live instructions and building a constant
// expression tree (spec.md §4.1: "the converter supports two independent
// modes").
type Mode int

const (
	// ModeLive emits real instructions, inserted at the given InsertionPoint.
	ModeLive Mode = iota
	// ModeConstExpr builds a detached ir.ConstExpr/ir.ConstAggregate chain
	// suitable for use as a GlobalObject initializer; nothing is inserted
	// into any block.
	ModeConstExpr
)

// InsertionPoint names where a live-mode conversion's instructions are
// attached: immediately before or after Anchor, in Anchor's own block.
type InsertionPoint struct {
	Anchor Instruction
	After  bool
}

// Instruction is the subset of ir.Instruction an InsertionPoint anchors to.
// Declared separately from ir.Instruction only so this file doesn't need to
// import ir twice under two names; it is exactly ir.Instruction.
type Instruction = ir.Instruction

// Converter holds the one piece of target-machine state the decision table
// needs: the width of a pointer, so Pointer<->Integer/Float conversions
// know which integer width to route through (spec.md §4.1: "Pointer ->
// Float: via Integer of equal width, then BitCast" — equal to the pointer's
// own width).
type Converter struct {
	PointerBits uint32
}

// New returns a Converter for a target whose pointers are pointerBits wide.
func New(pointerBits uint32) *Converter {
	return &Converter{PointerBits: pointerBits}
}

// Convert produces a Value of type target equivalent to v, per spec.md
// §4.1's decision table. p is ignored in ModeConstExpr.
func (c *Converter) Convert(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	if ir.Equal(v.Type(), target) {
		return v, nil
	}

	// Load-of-aggregate special case (live mode only): if v is a Load of
	// aggregate type, synthesize a new Load whose pointer has been BitCast
	// to Pointer(target). The old aggregate load is not erased here; it
	// stays in its block with its existing users. This takes priority over the generic
	// extract-field[0]-then-recurse aggregate rule, since it avoids
	// materializing the whole aggregate just to read one field out of it.
	if mode == ModeLive && ir.IsAggregate(v.Type()) {
		if ld, ok := v.(*ir.Load); ok {
			return c.convertAggregateLoad(ld, target, p)
		}
	}

	src := v.Type()
	switch {
	case ir.IsPointer(src):
		return c.fromPointer(v, target, p, mode)
	case ir.IsInteger(src):
		return c.fromInteger(v, target, p, mode)
	case ir.IsFloat(src):
		return c.fromFloat(v, target, p, mode)
	case ir.IsAggregate(src):
		return c.fromAggregate(v, target, p, mode)
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "from %s to %s", src, target)
}

func (c *Converter) convertAggregateLoad(ld *ir.Load, target ir.Type, p InsertionPoint) (ir.Value, error) {
	ptrTarget := ir.NewPointer(target)
	castAddr, err := c.Convert(ld.Addr, ptrTarget, p, ModeLive)
	if err != nil {
		return nil, err
	}
	newLoad := ir.NewLoad(ld.Name()+".reload", castAddr)
	c.attachLive(newLoad, p)
	return newLoad, nil
}

func (c *Converter) fromPointer(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	switch {
	case ir.IsPointer(target):
		return c.bitcast(v, target, p, mode)
	case ir.IsInteger(target):
		return c.ptrToInt(v, target.(*ir.IntType), p, mode)
	case ir.IsFloat(target):
		// Pointer -> Float: via Integer of equal width (the pointer's own
		// width), then BitCast.
		iv, err := c.ptrToInt(v, ir.NewInt(c.PointerBits), p, mode)
		if err != nil {
			return nil, err
		}
		return c.Convert(iv, target, p, mode)
	case ir.IsAggregate(target):
		return c.wrapField0(v, target, p, mode)
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "from pointer %s to %s", v.Type(), target)
}

func (c *Converter) fromInteger(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	switch {
	case ir.IsPointer(target):
		return c.intToPtr(v, target.(*ir.PointerType), p, mode)
	case ir.IsInteger(target):
		return c.integerCast(v, target.(*ir.IntType), p, mode)
	case ir.IsFloat(target):
		ft := target.(*ir.FloatType)
		src := v.Type().(*ir.IntType)
		iv := v
		if src.Bits != ft.Bits {
			var err error
			iv, err = c.integerCast(v, ir.NewInt(ft.Bits), p, mode)
			if err != nil {
				return nil, err
			}
		}
		return c.bitcast(iv, ft, p, mode)
	case ir.IsAggregate(target):
		return c.wrapField0(v, target, p, mode)
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "from integer %s to %s", v.Type(), target)
}

func (c *Converter) fromFloat(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	src := v.Type().(*ir.FloatType)
	switch {
	case ir.IsPointer(target):
		// Float -> Pointer: via Integer of width(src), then target.
		iv, err := c.bitcast(v, ir.NewInt(src.Bits), p, mode)
		if err != nil {
			return nil, err
		}
		return c.Convert(iv, target, p, mode)
	case ir.IsInteger(target):
		dst := target.(*ir.IntType)
		if ir.FloatBitsSupported(dst.Bits) {
			fv, err := c.fpcast(v, ir.NewFloat(dst.Bits), p, mode)
			if err != nil {
				return nil, err
			}
			return c.bitcast(fv, dst, p, mode)
		}
		// Unsupported target width (e.g. i24): tie-break canonicalizes on
		// 32-bit integer (spec.md §4.1's float-width-fallback tie-break;
		// concrete scenario in §8: "float-to-integer conversion with target
		// integer width 24 routes via i32").
		fv32, err := c.fpcast(v, ir.F32, p, mode)
		if err != nil {
			return nil, err
		}
		iv32, err := c.bitcast(fv32, ir.I32, p, mode)
		if err != nil {
			return nil, err
		}
		return c.integerCast(iv32, dst, p, mode)
	case ir.IsFloat(target):
		return c.fpcast(v, target.(*ir.FloatType), p, mode)
	case ir.IsAggregate(target):
		return c.wrapField0(v, target, p, mode)
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "from float %s to %s", v.Type(), target)
}

func (c *Converter) fromAggregate(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	field0Type := ir.Elem(v.Type())
	field0, err := c.extractValue(v, field0Type, p, mode)
	if err != nil {
		return nil, err
	}
	return c.Convert(field0, target, p, mode)
}

// wrapField0 builds a value of aggregate type target whose field/element 0
// is v converted to target's field[0] type, the remaining fields left
// Undef (spec.md §4.1: scalar-to-Aggregate conversions "recurse into
// field[0]" — the write-side mirror of fromAggregate's read-side peel).
func (c *Converter) wrapField0(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	field0Type := ir.Elem(target)
	field0, err := c.Convert(v, field0Type, p, mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeConstExpr {
		fields := undefFields(target)
		fields[0] = field0
		return &ir.ConstAggregate{Typ: target, Fields: fields}, nil
	}
	base := &ir.Undef{Typ: target}
	iv := ir.NewInsertValue(v.Name()+".wrap", base, field0, 0)
	c.attachLive(iv, p)
	return iv, nil
}

func undefFields(t ir.Type) []ir.Value {
	switch t := t.(type) {
	case *ir.ArrayType:
		fields := make([]ir.Value, t.Count)
		for i := range fields {
			fields[i] = &ir.Undef{Typ: t.Elem}
		}
		return fields
	case *ir.StructType:
		fields := make([]ir.Value, len(t.Fields))
		for i, ft := range t.Fields {
			fields[i] = &ir.Undef{Typ: ft}
		}
		return fields
	}
	panic("typeconv: undefFields of non-aggregate type")
}

func (c *Converter) extractValue(v ir.Value, fieldType ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		if agg, ok := v.(*ir.ConstAggregate); ok && len(agg.Fields) > 0 {
			return agg.Fields[0], nil
		}
		return &ir.ConstExpr{Op: "extractvalue", Typ: fieldType, X: v, Index: 0}, nil
	}
	ev := ir.NewExtractValue(v.Name()+".0", v, 0, fieldType)
	c.attachLive(ev, p)
	return ev, nil
}

func (c *Converter) bitcast(v ir.Value, target ir.Type, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		return &ir.ConstExpr{Op: "bitcast", Typ: target, X: v}, nil
	}
	bc := ir.NewBitCast(v.Name()+".bc", v, target)
	c.attachLive(bc, p)
	return bc, nil
}

func (c *Converter) ptrToInt(v ir.Value, target *ir.IntType, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		return &ir.ConstExpr{Op: "ptrtoint", Typ: target, X: v}, nil
	}
	pi := ir.NewPtrToInt(v.Name()+".i", v, target)
	c.attachLive(pi, p)
	return pi, nil
}

func (c *Converter) intToPtr(v ir.Value, target *ir.PointerType, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		return &ir.ConstExpr{Op: "inttoptr", Typ: target, X: v}, nil
	}
	ip := ir.NewIntToPtr(v.Name()+".p", v, target)
	c.attachLive(ip, p)
	return ip, nil
}

// integerCast performs a signed extension/truncation between two integer
// widths (spec.md §4.1 tie-break: "Integer-to-integer conversions are
// performed as signed extensions/truncations").
func (c *Converter) integerCast(v ir.Value, target *ir.IntType, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		return &ir.ConstExpr{Op: "sext/trunc", Typ: target, X: v}, nil
	}
	ic := ir.NewIntegerCast(v.Name()+".cast", v, target)
	c.attachLive(ic, p)
	return ic, nil
}

func (c *Converter) fpcast(v ir.Value, target *ir.FloatType, p InsertionPoint, mode Mode) (ir.Value, error) {
	if mode == ModeConstExpr {
		return &ir.ConstExpr{Op: "fpcast", Typ: target, X: v}, nil
	}
	fc := ir.NewFPCast(v.Name()+".fp", v, target)
	c.attachLive(fc, p)
	return fc, nil
}

func (c *Converter) attachLive(instr ir.Instruction, p InsertionPoint) {
	if p.After {
		ir.InsertAfter(p.Anchor, instr)
	} else {
		ir.InsertBefore(p.Anchor, instr)
	}
	ir.AttachUses(instr)
}
