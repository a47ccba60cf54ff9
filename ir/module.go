package ir

// Module is the whole in-memory SSA program: a set of functions and global
// objects. It is the "IrGraph" of spec.md §2 — created once at the start
// of lifting and mutated in place for the whole decompilation run (spec.md
// §3 "Lifecycle").
type Module struct {
	Name        string
	PointerBits uint32 // ABI word width, e.g. 64 on amd64
	Functions   []*Function
	Globals     []*GlobalObject

	byAddr map[Address]*GlobalObject
}

// NewModule returns an empty Module targeting the given pointer width.
func NewModule(name string, pointerBits uint32) *Module {
	return &Module{Name: name, PointerBits: pointerBits, byAddr: make(map[Address]*GlobalObject)}
}

// AddFunction registers fn with the module.
func (m *Module) AddFunction(fn *Function) { m.Functions = append(m.Functions, fn) }

// AddGlobal registers g with the module, indexing it by address if it has
// one.
func (m *Module) AddGlobal(g *GlobalObject) {
	m.Globals = append(m.Globals, g)
	if g.Addr != nil {
		m.byAddr[*g.Addr] = g
	}
}

// GlobalAt returns the global registered at addr, if any.
func (m *Module) GlobalAt(addr Address) (*GlobalObject, bool) {
	g, ok := m.byAddr[addr]
	return g, ok
}

// RemoveGlobal drops g from the module's global list and address index.
// Used by AddressMaterializer when an initializer turns out to be
// unreadable and the IR-level global must be discarded while its
// ConfigStore entry is kept (spec.md §4.3, §7 InitializerUnreadable).
func (m *Module) RemoveGlobal(g *GlobalObject) {
	for i, gg := range m.Globals {
		if gg == g {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			break
		}
	}
	if g.Addr != nil {
		// A retype (ObjectMutator.ChangeObjectType) calls AddGlobal on the
		// replacement before RemoveGlobal on the old declaration, so
		// byAddr[*g.Addr] may already have moved on to the new global by
		// the time this runs; only clear the index if it still points at g.
		if cur, ok := m.byAddr[*g.Addr]; ok && cur == g {
			delete(m.byAddr, *g.Addr)
		}
	}
}

// FunctionByAddr finds a function registered at addr, if any.
func (m *Module) FunctionByAddr(addr Address) (*Function, bool) {
	for _, f := range m.Functions {
		if f.Addr != nil && *f.Addr == addr {
			return f, true
		}
	}
	return nil, false
}
