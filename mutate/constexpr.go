package mutate

import (
	"github.com/binlift/irmod/ir"
	"github.com/binlift/irmod/typeconv"
)

// patchConstantInitializers handles spec.md §4.2 step 4's "Constant user
// (e.g., initializer of another global)" case. A GlobalObject's
// Initializer can embed v inside a ConstExpr/ConstAggregate tree without
// ever appearing in v's instruction use-list (Referrers tracks
// Instructions only), so this case can't be found by snapshotting
// ir.Users(v) the way every other case in retypeUser is — it needs an
// explicit walk over the module's globals instead.
func patchConstantInitializers(conv *typeconv.Converter, mod *ir.Module, v, vPrime ir.Value) error {
	oldType := v.Type()
	for _, g := range mod.Globals {
		if g.Initializer == nil {
			continue
		}
		replaced, err := replaceInConstTree(conv, g.Initializer, v, vPrime, oldType)
		if err != nil {
			return err
		}
		g.Initializer = replaced
	}
	return nil
}

// replaceInConstTree returns a copy of val with every occurrence of old
// replaced by new converted (const-expr mode) back to oldType, per the
// same "convert back to v's original type" rule the live-mode generic
// operand case uses.
func replaceInConstTree(conv *typeconv.Converter, val, old, new ir.Value, oldType ir.Type) (ir.Value, error) {
	if val == old {
		return conv.Convert(new, oldType, typeconv.InsertionPoint{}, typeconv.ModeConstExpr)
	}
	switch cv := val.(type) {
	case *ir.ConstExpr:
		nx, err := replaceInConstTree(conv, cv.X, old, new, oldType)
		if err != nil {
			return nil, err
		}
		if nx == cv.X {
			return cv, nil
		}
		return &ir.ConstExpr{Op: cv.Op, Typ: cv.Typ, X: nx, Index: cv.Index}, nil

	case *ir.ConstAggregate:
		changed := false
		fields := make([]ir.Value, len(cv.Fields))
		for i, f := range cv.Fields {
			nf, err := replaceInConstTree(conv, f, old, new, oldType)
			if err != nil {
				return nil, err
			}
			if nf != f {
				changed = true
			}
			fields[i] = nf
		}
		if !changed {
			return cv, nil
		}
		return &ir.ConstAggregate{Typ: cv.Typ, Fields: fields}, nil
	}
	return val, nil
}
