// Package config implements ConfigStore: the parallel database that
// mirrors selected IR objects to source-level metadata — address,
// symbolic name, storage class, type string, crypto annotation — keyed
// bidirectionally by IR handle and by binary address (spec.md §2, §3
// ConfigObject, §6 "ConfigStore on-disk form").
//
// Per spec.md §9's redesign note ("Pointer identity used as map key"), the
// store never keys on a raw *ir.Value or ir.Address alone as the primary
// key: IR objects are freely re-created during type changes (ObjectMutator
// builds a brand new Alloca/GlobalObject rather than mutating one in
// place), so the primary key is a Handle — a stable interned id minted
// once per logical object and rebound to whatever the current underlying
// ir.Value is after a retype.
package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/binlift/irmod/ir"
)

// Handle is a stable identifier for a logical config object, independent
// of the IR value currently backing it.
type Handle int64

// StorageKind enumerates where a tracked object lives, per spec.md §3/§6.
type StorageKind int

const (
	StorageGlobal StorageKind = iota
	StorageStack
	StorageRegister
)

func (k StorageKind) String() string {
	switch k {
	case StorageGlobal:
		return "global"
	case StorageStack:
		return "stack"
	case StorageRegister:
		return "register"
	}
	return "unknown"
}

// Storage is the tagged storage-class payload of spec.md §3: {GlobalAddr,
// StackOffset(fn, off), Register(id)}.
type Storage struct {
	Kind       StorageKind
	Addr       ir.Address // meaningful when Kind == StorageGlobal
	FuncName   string     // meaningful when Kind == StorageStack
	Offset     int64      // meaningful when Kind == StorageStack
	RegisterID string     // meaningful when Kind == StorageRegister
}

// Object is the in-memory ConfigObject of spec.md §3.
type Object struct {
	Handle            Handle
	Name              string
	Storage           Storage
	TypeSource        string // "type-llvm-ir" in spec.md §6's on-disk schema
	CryptoDescription string
	IsFromDebug       bool
	IsWideString      bool
}

// FunctionEntry mirrors spec.md §6's per-function on-disk record:
// {address, name, storage-of-each-parameter, calling-convention}.
type FunctionEntry struct {
	Addr       *ir.Address
	Name       string
	ParamSpecs []string
	CallConv   string
}

type stackKey struct {
	fn  string
	off int64
}

// Store is the ConfigStore. Objects are keyed by Handle or a derived
// lookup key, per the redesign note above; the one map keyed by ir.Value
// identity is the reverse index behind HandleOf, which together with
// ValueOf bridges to the live IR graph and is updated by Rebind.
type Store struct {
	objects   map[Handle]*Object
	functions map[string]*FunctionEntry

	byAddr  map[ir.Address]Handle
	byStack map[stackKey]Handle

	current map[Handle]ir.Value
	reverse map[ir.Value]Handle

	next Handle
}

// NewStore returns an empty ConfigStore.
func NewStore() *Store {
	return &Store{
		objects:   make(map[Handle]*Object),
		functions: make(map[string]*FunctionEntry),
		byAddr:    make(map[ir.Address]Handle),
		byStack:   make(map[stackKey]Handle),
		current:   make(map[Handle]ir.Value),
		reverse:   make(map[ir.Value]Handle),
	}
}

// NewHandle mints a fresh, never-before-used Handle.
func (s *Store) NewHandle() Handle {
	s.next++
	return s.next
}

// Put registers obj under its own Handle (minting one if obj.Handle is
// zero) bound to value, and indexes it by address/stack-offset according
// to its Storage.Kind. Returns the handle used.
func (s *Store) Put(obj *Object, value ir.Value) Handle {
	if obj.Handle == 0 {
		obj.Handle = s.NewHandle()
	}
	s.objects[obj.Handle] = obj
	s.Rebind(obj.Handle, value)

	switch obj.Storage.Kind {
	case StorageGlobal:
		s.byAddr[obj.Storage.Addr] = obj.Handle
	case StorageStack:
		s.byStack[stackKey{obj.Storage.FuncName, obj.Storage.Offset}] = obj.Handle
	}
	return obj.Handle
}

// Rebind updates the IR value currently backing handle, e.g. after
// ObjectMutator replaces a global/alloca's declaration with a retyped one.
func (s *Store) Rebind(handle Handle, value ir.Value) {
	if old, ok := s.current[handle]; ok {
		delete(s.reverse, old)
	}
	s.current[handle] = value
	if value != nil {
		s.reverse[value] = handle
	}
}

// Get returns the Object registered under handle.
func (s *Store) Get(handle Handle) (*Object, bool) {
	o, ok := s.objects[handle]
	return o, ok
}

// GetByAddr returns the Object mirroring the global at addr, if any.
func (s *Store) GetByAddr(addr ir.Address) (*Object, bool) {
	h, ok := s.byAddr[addr]
	if !ok {
		return nil, false
	}
	return s.Get(h)
}

// GetStackSlot returns the Object mirroring the stack slot at
// (fn, offset), if any. This is the ConfigStore side of spec.md §3
// invariant 4 ("A stack slot for a given (function, offset) exists at
// most once"): StackSlotAllocator consults this before creating anything.
func (s *Store) GetStackSlot(fn string, offset int64) (*Object, bool) {
	h, ok := s.byStack[stackKey{fn, offset}]
	if !ok {
		return nil, false
	}
	return s.Get(h)
}

// ValueOf returns the IR value currently backing handle.
func (s *Store) ValueOf(handle Handle) (ir.Value, bool) {
	v, ok := s.current[handle]
	return v, ok
}

// HandleOf returns the handle currently bound to v, if v is tracked.
func (s *Store) HandleOf(v ir.Value) (Handle, bool) {
	h, ok := s.reverse[v]
	return h, ok
}

// UpdateType re-derives obj.TypeSource, called by ObjectMutator's side
// effect step (spec.md §4.2: "ConfigStore is updated to reflect the new
// type").
func (s *Store) UpdateType(handle Handle, typeSource string) {
	if o, ok := s.objects[handle]; ok {
		o.TypeSource = typeSource
	}
}

// UpdateWideString sets obj.IsWideString.
func (s *Store) UpdateWideString(handle Handle, wide bool) {
	if o, ok := s.objects[handle]; ok {
		o.IsWideString = wide
	}
}

// Delete removes handle and every index entry pointing at it. Used when
// AddressMaterializer keeps a ConfigStore entry for an address whose
// IR-level global it had to discard — in that case Delete is *not* called
// (spec.md §4.3: the entry is kept on InitializerUnreadable); Delete
// exists for callers that genuinely need to retract an entry.
func (s *Store) Delete(handle Handle) {
	obj, ok := s.objects[handle]
	if !ok {
		return
	}
	switch obj.Storage.Kind {
	case StorageGlobal:
		delete(s.byAddr, obj.Storage.Addr)
	case StorageStack:
		delete(s.byStack, stackKey{obj.Storage.FuncName, obj.Storage.Offset})
	}
	if v, ok := s.current[handle]; ok {
		delete(s.reverse, v)
	}
	delete(s.current, handle)
	delete(s.objects, handle)
}

// PutFunction registers or replaces the FunctionEntry for name.
func (s *Store) PutFunction(entry *FunctionEntry) {
	s.functions[entry.Name] = entry
}

// GetFunction returns the FunctionEntry for name, if any.
func (s *Store) GetFunction(name string) (*FunctionEntry, bool) {
	e, ok := s.functions[name]
	return e, ok
}

// Objects returns every Object currently registered, in no particular
// order. Exists for callers (e.g. the irmodtool dump command) that need to
// walk the whole store rather than look up one handle or address at a
// time.
func (s *Store) Objects() []*Object {
	out := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	return out
}

// FunctionEntries returns every FunctionEntry currently registered, in no
// particular order.
func (s *Store) FunctionEntries() []*FunctionEntry {
	out := make([]*FunctionEntry, 0, len(s.functions))
	for _, f := range s.functions {
		out = append(out, f)
	}
	return out
}

// DeleteFunction removes the FunctionEntry for name, if any. Used by
// RenameFunction so a rename doesn't leave the function's entry
// double-booked under both its old and new names.
func (s *Store) DeleteFunction(name string) {
	delete(s.functions, name)
}

// --- on-disk form -----------------------------------------------------

// doc is the YAML-serializable shape of the store, matching spec.md §6's
// schema field-for-field.
type doc struct {
	Objects   []objectDoc   `yaml:"objects"`
	Functions []functionDoc `yaml:"functions"`
}

type objectDoc struct {
	Address           *uint64 `yaml:"address,omitempty"`
	Name              string  `yaml:"name"`
	StorageKind        string  `yaml:"storage_kind"`
	StorageValue       string  `yaml:"storage_value"`
	TypeLLVMIR         string  `yaml:"type_llvm_ir"`
	CryptoDescription  string  `yaml:"crypto_description,omitempty"`
	IsFromDebug        bool    `yaml:"is_from_debug"`
	IsWideString       bool    `yaml:"is_wide_string"`
}

type functionDoc struct {
	Address              *uint64  `yaml:"address,omitempty"`
	Name                 string   `yaml:"name"`
	StorageOfEachParam   []string `yaml:"storage_of_each_parameter"`
	CallingConvention    string   `yaml:"calling_convention"`
}

// Save writes the store's on-disk document to w.
func (s *Store) Save(w io.Writer) error {
	var d doc
	for _, o := range s.objects {
		od := objectDoc{
			Name:              o.Name,
			StorageKind:       o.Storage.Kind.String(),
			TypeLLVMIR:        o.TypeSource,
			CryptoDescription: o.CryptoDescription,
			IsFromDebug:       o.IsFromDebug,
			IsWideString:      o.IsWideString,
		}
		switch o.Storage.Kind {
		case StorageGlobal:
			addr := uint64(o.Storage.Addr)
			od.Address = &addr
			od.StorageValue = fmtAddr(o.Storage.Addr)
		case StorageStack:
			od.StorageValue = fmtStack(o.Storage.FuncName, o.Storage.Offset)
		case StorageRegister:
			od.StorageValue = o.Storage.RegisterID
		}
		d.Objects = append(d.Objects, od)
	}
	for _, f := range s.functions {
		fd := functionDoc{
			Name:               f.Name,
			StorageOfEachParam: append([]string(nil), f.ParamSpecs...),
			CallingConvention:  f.CallConv,
		}
		if f.Addr != nil {
			addr := uint64(*f.Addr)
			fd.Address = &addr
		}
		d.Functions = append(d.Functions, fd)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return errors.Wrap(enc.Encode(&d), "config: encoding store")
}

// Load reads a previously-Saved document from r into a fresh Store. The
// returned store's entries are detached from any live IR value until
// AddressMaterializer/StackSlotAllocator reconnects them (by matching on
// address/offset and calling Rebind), matching spec.md §3's lifecycle note
// that globals and stack locals are materialized lazily on first
// reference.
func Load(r io.Reader) (*Store, error) {
	var d doc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(err, "config: decoding store")
	}
	s := NewStore()
	for _, od := range d.Objects {
		obj := &Object{
			Name:              od.Name,
			TypeSource:        od.TypeLLVMIR,
			CryptoDescription: od.CryptoDescription,
			IsFromDebug:       od.IsFromDebug,
			IsWideString:      od.IsWideString,
		}
		switch od.StorageKind {
		case "global":
			if od.Address != nil {
				obj.Storage = Storage{Kind: StorageGlobal, Addr: ir.Address(*od.Address)}
			}
		case "stack":
			fn, off, err := parseStack(od.StorageValue)
			if err != nil {
				return nil, err
			}
			obj.Storage = Storage{Kind: StorageStack, FuncName: fn, Offset: off}
		case "register":
			obj.Storage = Storage{Kind: StorageRegister, RegisterID: od.StorageValue}
		}
		s.Put(obj, nil)
	}
	for _, fd := range d.Functions {
		entry := &FunctionEntry{
			Name:       fd.Name,
			ParamSpecs: append([]string(nil), fd.StorageOfEachParam...),
			CallConv:   fd.CallingConvention,
		}
		if fd.Address != nil {
			a := ir.Address(*fd.Address)
			entry.Addr = &a
		}
		s.PutFunction(entry)
	}
	return s, nil
}
