// Package mutate implements ObjectMutator: the operation that changes the
// declared type of a global, stack local, or function argument and
// rewrites every one of its users so the program keeps type-checking
// (spec.md §4.2). It is the one place in this module that walks a live
// use-list and rewrites operands in place; everything else builds new
// values and lets ReplaceAllUsesWith or ReplaceOperand do the patching.
package mutate

import (
	"github.com/pkg/errors"

	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/ir"
	"github.com/binlift/irmod/typeconv"
)

// ErrUnsupportedObjectKind is raised (via panic, see below) when
// ChangeObjectType is invoked on something other than an Alloca,
// GlobalObject, or Argument. Spec.md §7 classifies this as programmer
// error: the caller handed this core a value kind it never promised to
// retype, which means the surrounding pass pipeline produced a pattern
// this core does not recognize — not a condition any caller can recover
// from locally, so it terminates the run rather than returning an error.
var ErrUnsupportedObjectKind = errors.New("mutate: unsupported object kind")

// Mutator retypes IR objects via typeconv and keeps ConfigStore in sync.
type Mutator struct {
	Ctx  *core.Context
	Conv *typeconv.Converter
}

// New returns a Mutator bound to ctx, with a Converter sized to ctx's
// pointer width.
func New(ctx *core.Context) *Mutator {
	return &Mutator{Ctx: ctx, Conv: typeconv.New(ctx.Module.PointerBits)}
}

// ChangeObjectType changes v's declared type to target and retypes every
// current user of v so it continues to type-check, per spec.md §4.2's
// five-step algorithm. initializer is consulted only when v is a
// GlobalObject (nil means "read fresh from the image at v's address").
// eraseQ is forwarded to every ir.Erase call this produces; nil means
// eager erase.
func (m *Mutator) ChangeObjectType(v ir.Value, target ir.Type, initializer ir.Value, eraseQ *ir.EraseQueue, wideString bool) (ir.Value, error) {
	if ir.Equal(v.Type(), target) {
		return v, nil
	}

	switch v.(type) {
	case *ir.Alloca, *ir.GlobalObject, *ir.Argument:
	default:
		panic(errors.Wrapf(ErrUnsupportedObjectKind, "value %q has kind %T", v.Name(), v))
	}

	// Snapshot users before re-declaring: in-place iteration over a
	// use-list being rewritten underneath it has been observed to drop
	// users mid-traversal (spec.md §4.2 step 3 / §9).
	users := ir.Users(v)

	vPrime, err := m.redeclare(v, target, initializer, wideString)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if err := m.retypeUser(v, vPrime, user, eraseQ); err != nil {
			return nil, err
		}
	}

	if err := patchConstantInitializers(m.Conv, m.Ctx.Module, v, vPrime); err != nil {
		return nil, err
	}

	m.retire(v)
	m.syncConfig(v, vPrime, target, wideString)

	return vPrime, nil
}

// redeclare builds the new declaration for v, per spec.md §4.2 step 2.
func (m *Mutator) redeclare(v ir.Value, target ir.Type, initializer ir.Value, wideString bool) (ir.Value, error) {
	switch old := v.(type) {
	case *ir.Alloca:
		fn := old.Block().Func
		newA := ir.NewAlloca(old.Name(), ir.Elem(target))
		fn.Entry().PrependAlloca(newA)
		return newA, nil

	case *ir.GlobalObject:
		init := initializer
		if init == nil && old.Addr != nil {
			c, err := m.Ctx.Image.Constant(ir.Elem(target), *old.Addr, wideString)
			if err != nil {
				return nil, errors.Wrapf(err, "mutate: reading fresh initializer at %#x", *old.Addr)
			}
			init = c
		}
		newG := ir.NewGlobal(old.Name(), ir.Elem(target))
		newG.Addr = old.Addr
		newG.Initializer = init
		newG.Link = old.Link
		newG.IsConstant = old.IsConstant
		newG.WideString = wideString
		m.Ctx.Module.AddGlobal(newG)
		return newG, nil

	case *ir.Argument:
		return old.Parent.RebuildSignature(old.Index, target), nil
	}
	panic(errors.Wrapf(ErrUnsupportedObjectKind, "value %q has kind %T", v.Name(), v))
}

// retypeUser re-types a single snapshotted user of v by kind, per spec.md
// §4.2 step 4.
func (m *Mutator) retypeUser(v, vPrime ir.Value, user ir.Instruction, eraseQ *ir.EraseQueue) error {
	switch u := user.(type) {
	case *ir.Store:
		return m.retypeStore(v, vPrime, u)
	case *ir.Load:
		return m.retypeLoad(v, vPrime, u, eraseQ)
	case *ir.BitCast:
		return m.retypeCast(v, vPrime, u, u.Type(), eraseQ)
	case *ir.IntToPtr:
		return m.retypeCast(v, vPrime, u, u.Type(), eraseQ)
	case *ir.PtrToInt:
		return m.retypeCast(v, vPrime, u, u.Type(), eraseQ)
	case *ir.IntegerCast:
		return m.retypeCast(v, vPrime, u, u.Type(), eraseQ)
	case *ir.FPCast:
		return m.retypeCast(v, vPrime, u, u.Type(), eraseQ)
	default:
		// GEP, BinOp/UnOp/ICmp, Call, CondBranch, Return, ExtractValue,
		// InsertValue: spec.md §4.2's catch-all, "convert v' back to v's
		// original type and patch the operand".
		return m.retypeGenericOperand(v, vPrime, user)
	}
}

// retypeStore handles both "Store whose pointer is v" and "Store whose
// value is v" (spec.md §4.2 step 4); the two are not mutually exclusive
// (a self-store `*v = v` would hit both). ReplaceOperand can't be used
// here: it rewrites every operand slot equal to its "old" argument, so on
// a self-store the value-branch's own conversion (targeting v's original
// type) would also land in Addr, clobbering the pointer-branch's vPrime.
// Each slot is therefore resolved and assigned directly; when Addr == v,
// that branch alone decides both slots and the value-branch below is
// skipped, since Addr's new elem type is what Val must actually match.
func (m *Mutator) retypeStore(v, vPrime ir.Value, s *ir.Store) error {
	if s.Addr == v {
		val := s.Val
		if val == v {
			val = vPrime
		}
		newVal, err := m.Conv.Convert(val, ir.Elem(vPrime.Type()), liveBefore(s), typeconv.ModeLive)
		if err != nil {
			return err
		}
		if newVal != s.Val {
			ir.RemoveUse(s.Val, s)
			s.Val = newVal
			ir.AddUse(newVal, s)
		}
		ir.RemoveUse(s.Addr, s)
		s.Addr = vPrime
		ir.AddUse(vPrime, s)
		return nil
	}
	if s.Val == v {
		converted, err := m.Conv.Convert(vPrime, v.Type(), liveBefore(s), typeconv.ModeLive)
		if err != nil {
			return err
		}
		ir.RemoveUse(s.Val, s)
		s.Val = converted
		ir.AddUse(converted, s)
	}
	return nil
}

// retypeLoad handles "Load whose pointer is v": a new Load is synthesized
// through v', its result converted back to the old load's result type,
// and the old load is replaced and queued for erase.
func (m *Mutator) retypeLoad(v, vPrime ir.Value, l *ir.Load, eraseQ *ir.EraseQueue) error {
	if l.Addr != v {
		return m.retypeGenericOperand(v, vPrime, l)
	}
	newLoad := ir.NewLoad(l.Name()+".retyped", vPrime)
	ir.InsertBefore(l, newLoad)
	ir.AttachUses(newLoad)

	converted, err := m.Conv.Convert(newLoad, l.Type(), liveBefore(l), typeconv.ModeLive)
	if err != nil {
		return err
	}
	ir.ReplaceAllUsesWith(l, converted)
	ir.RemoveUse(v, l)
	ir.Erase(l, eraseQ)
	return nil
}

// retypeCast handles "Cast": if v' already has the cast's target type,
// every use of the cast collapses onto v' directly and the cast is
// erased; otherwise v' is converted to the cast's target type and swapped
// in as the cast's operand.
func (m *Mutator) retypeCast(v, vPrime ir.Value, cast ir.Instruction, castType ir.Type, eraseQ *ir.EraseQueue) error {
	castValue := cast.(ir.Value)
	if ir.Equal(vPrime.Type(), castType) {
		ir.ReplaceAllUsesWith(castValue, vPrime)
		ir.RemoveUse(v, cast)
		ir.Erase(cast, eraseQ)
		return nil
	}
	converted, err := m.Conv.Convert(vPrime, castType, liveBefore(cast), typeconv.ModeLive)
	if err != nil {
		return err
	}
	ir.ReplaceOperand(cast, v, converted)
	return nil
}

// retypeGenericOperand handles "GEP or any other instruction": v' is
// converted back to v's original type and patched into the operand slot,
// letting later passes continue propagating the new type themselves.
func (m *Mutator) retypeGenericOperand(v, vPrime ir.Value, user ir.Instruction) error {
	converted, err := m.Conv.Convert(vPrime, v.Type(), liveBefore(user), typeconv.ModeLive)
	if err != nil {
		return err
	}
	ir.ReplaceOperand(user, v, converted)
	return nil
}

func liveBefore(anchor ir.Instruction) typeconv.InsertionPoint {
	return typeconv.InsertionPoint{Anchor: anchor}
}

// retire removes v's own declaration now that every user has been
// repointed at v' (v.Referrers(), if it tracks one, is empty by
// construction: every retypeUser branch above ends by moving the operand
// away from v).
func (m *Mutator) retire(v ir.Value) {
	switch old := v.(type) {
	case *ir.Alloca:
		ir.Erase(old, nil)
	case *ir.GlobalObject:
		m.Ctx.Module.RemoveGlobal(old)
	case *ir.Argument:
		// already replaced in Function.Params by RebuildSignature.
	}
}

// syncConfig re-derives the ConfigStore entry's type-as-source-string and
// wide-string flag, and rebinds it to v' (spec.md §4.2 "Side effect").
func (m *Mutator) syncConfig(v, vPrime ir.Value, target ir.Type, wideString bool) {
	handle, ok := m.Ctx.Config.HandleOf(v)
	if !ok {
		return
	}
	typeSource := target.String()
	switch v.(type) {
	case *ir.Alloca, *ir.GlobalObject:
		// ConfigStore's type-llvm-ir field names the object's own type
		// (the pointee), not the pointer-to-it that Type() reports for
		// these kinds.
		typeSource = ir.Elem(target).String()
	}

	m.Ctx.Config.Rebind(handle, vPrime)
	m.Ctx.Config.UpdateType(handle, typeSource)
	m.Ctx.Config.UpdateWideString(handle, wideString)
}
