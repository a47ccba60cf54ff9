package ir

// Value is an SSA value: a Constant, a GlobalObject, a FunctionArgument, an
// Undef, or the result of an Instruction. Every Value has exactly one Type
// (spec.md §3, invariant 1) and a use-list of the Instructions that refer
// to it, so that ReplaceAllUsesWith is O(users) rather than requiring a
// scan of the whole program (spec.md §3: "the IR maintains the use-list
// per value such that replace_all_uses_with(v, v') is O(users)").
type Value interface {
	Type() Type
	Name() string
	// Referrers returns a pointer to this value's use-list, so callers may
	// append to or rewrite it in place. Constants have no use-list
	// (returns nil): they are values, not SSA definitions, and are not
	// tracked per the Value identity they're compared by.
	Referrers() *[]Instruction
}

// valueBase factors out the use-list bookkeeping shared by every Value
// implementation. Named values (globals, arguments, instruction results)
// embed it; Const and Undef do not, since constants are compared by
// structural value, not by def-use identity.
type valueBase struct {
	name      string
	referrers []Instruction
}

func (b *valueBase) Name() string { return b.name }

func (b *valueBase) Referrers() *[]Instruction { return &b.referrers }

// Const is a constant value of a given type carrying a raw bit pattern.
// Integers, pointers-to-null, and floats (via their bit representation)
// are all represented this way; aggregates are represented by
// ConstAggregate below.
type Const struct {
	Typ  Type
	Bits uint64 // raw bit pattern; reinterpreted per Typ
}

func (c *Const) Type() Type             { return c.Typ }
func (c *Const) Name() string           { return c.String() }
func (c *Const) Referrers() *[]Instruction { return nil }

// NewConstInt returns an integer constant.
func NewConstInt(t *IntType, v int64) *Const { return &Const{Typ: t, Bits: uint64(v)} }

// ConstAggregate is a constant array or struct value, built of element
// constants. Used by AddressMaterializer when it reads an initializer for
// an aggregate type out of the image.
type ConstAggregate struct {
	Typ    Type
	Fields []Value
}

func (c *ConstAggregate) Type() Type             { return c.Typ }
func (c *ConstAggregate) Name() string           { return c.String() }
func (c *ConstAggregate) Referrers() *[]Instruction { return nil }

// ConstExpr is a constant expression tree: the const-expr mode output of
// TypeConverter.Convert (spec.md §4.1 — "in const-expr mode, the mirror
// chain of constant expressions is returned"). Op names the cast it
// performs (e.g. "bitcast", "ptrtoint", "extractvalue"); the concrete
// instruction kinds in instr.go document the live-mode equivalents this
// mirrors.
type ConstExpr struct {
	Op     string
	Typ    Type
	X      Value
	Index  int // used by extractvalue
}

func (c *ConstExpr) Type() Type             { return c.Typ }
func (c *ConstExpr) Name() string           { return c.String() }
func (c *ConstExpr) Referrers() *[]Instruction { return nil }

// Undef is a value of the given type with unspecified contents, used as a
// placeholder (e.g. the fields other than field 0 when TypeConverter wraps
// a scalar into an aggregate).
type Undef struct {
	Typ Type
}

func (u *Undef) Type() Type             { return u.Typ }
func (u *Undef) Name() string           { return "undef" }
func (u *Undef) Referrers() *[]Instruction { return nil }

// Linkage classifies a GlobalObject's visibility, as would be mirrored in
// ConfigStore's storage-kind field.
type Linkage int

const (
	LinkagePrivate Linkage = iota
	LinkageInternal
	LinkageExternal
)

// Address is a binary virtual address. It is the key under which
// AddressMaterializer and ConfigStore both index global objects (spec.md
// §3: GlobalObject.address is optional; when present the object is
// mirrored in ConfigStore).
type Address uint64

// GlobalObject is a named, addressable storage location: {address?, type
// (always Pointer(T)), initializer, linkage, constant?, name} per spec.md
// §3. Its declared Type is always a PointerType; Elem(g.Type()) is the
// pointee type.
type GlobalObject struct {
	valueBase
	Addr        *Address // nil if this global has no binary address
	Typ         *PointerType
	Initializer Value // Const, ConstAggregate, or ConstExpr; nil if uninitialized
	Link        Linkage
	IsConstant  bool
	WideString  bool
}

func (g *GlobalObject) Type() Type { return g.Typ }

// NewGlobal constructs a GlobalObject. Use materialize's
// GetGlobalVariable rather than this directly when the global must be
// mirrored into ConfigStore.
func NewGlobal(name string, typ Type) *GlobalObject {
	g := &GlobalObject{Typ: NewPointer(typ)}
	g.name = name
	return g
}

// Argument is a function parameter. Its Index is its position among the
// owning Function's parameters; ObjectMutator's FunctionArgument retyping
// path rebuilds the owning Function's signature with the argument at this
// same position retyped (spec.md §4.2 step 2).
type Argument struct {
	valueBase
	Typ    Type
	Index  int
	Parent *Function
}

func (a *Argument) Type() Type { return a.Typ }

// NewArgument constructs a function argument value.
func NewArgument(name string, typ Type, index int, fn *Function) *Argument {
	a := &Argument{Typ: typ, Index: index, Parent: fn}
	a.name = name
	return a
}
