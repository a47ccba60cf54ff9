// Package image provides a read-only view over the loaded object file:
// byte access, segment classification, word/string reads, and constant
// materialization at an address for a given type (spec.md §2 ImageView,
// §6 "ImageView operations consumed"). The real implementation would be
// backed by the binary loader; that loader is out of scope for this
// module (spec.md §1), so this package also ships MemView, an in-memory
// implementation used by this module's own tests and suitable as a
// reference for wiring a real one.
package image

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/binlift/irmod/ir"
)

// Segment classifies the memory a given address falls in. The vocabulary
// (code vs data, allocated, writable, executable) follows the section-flag
// reasoning of an ELF section header — SHF_ALLOC / SHF_WRITE /
// SHF_EXECINSTR — as modeled in this module's retrieval pack by
// arc-language-core-codegen/format/elf/writer.go, even though that file is
// a writer rather than a reader.
type Segment int

const (
	SegUnknown Segment = iota
	SegCode
	SegData
	SegReadOnlyData
)

// View is the read-only interface this core consumes from the loaded
// object file (spec.md §6).
type View interface {
	HasDataOn(addr ir.Address) bool
	HasReadOnlyDataOn(addr ir.Address) bool
	SegmentOf(addr ir.Address) Segment
	WordAt(addr ir.Address) (uint64, bool)
	StringAt(addr ir.Address) (string, bool)
	// Constant materializes a Value of type t by reading |t| bytes
	// starting at addr. wide selects a wide-string read (spec.md §3
	// GlobalObject, "wide-string flag controls string interpretation"):
	// every i8 element of an array, and every i8 field of a struct, then
	// occupies a 2-byte unit; it has no effect on scalar types.
	Constant(t ir.Type, addr ir.Address, wide bool) (ir.Value, error)
}

// ErrOutOfRange is returned when a read would run past the image.
var ErrOutOfRange = errors.New("image: address out of range")

// region is one contiguous span of bytes at a known base address and
// known segment classification.
type region struct {
	base    ir.Address
	bytes   []byte
	segment Segment
}

func (r region) contains(addr ir.Address) bool {
	return addr >= r.base && uint64(addr-r.base) < uint64(len(r.bytes))
}

// MemView is an in-memory View, built from a set of byte regions. It is
// little-endian, matching the teacher's own ELF writer
// (format/elf/writer.go uses binary.LittleEndian throughout) and the
// overwhelmingly common case for the decompiler-tooling ecosystem this
// core belongs to (x86/ARM/PIC32 targets in spec.md §4.3 are all
// little-endian in their common configurations).
type MemView struct {
	regions []region
}

// NewMemView returns an empty MemView.
func NewMemView() *MemView { return &MemView{} }

// AddRegion registers a span of bytes at base, classified as segment.
func (m *MemView) AddRegion(base ir.Address, data []byte, segment Segment) {
	m.regions = append(m.regions, region{base: base, bytes: data, segment: segment})
}

func (m *MemView) find(addr ir.Address) (region, bool) {
	for _, r := range m.regions {
		if r.contains(addr) {
			return r, true
		}
	}
	return region{}, false
}

func (m *MemView) HasDataOn(addr ir.Address) bool {
	_, ok := m.find(addr)
	return ok
}

func (m *MemView) HasReadOnlyDataOn(addr ir.Address) bool {
	r, ok := m.find(addr)
	return ok && r.segment == SegReadOnlyData
}

func (m *MemView) SegmentOf(addr ir.Address) Segment {
	r, ok := m.find(addr)
	if !ok {
		return SegUnknown
	}
	return r.segment
}

func (m *MemView) bytesAt(addr ir.Address, n int) ([]byte, bool) {
	r, ok := m.find(addr)
	if !ok {
		return nil, false
	}
	off := uint64(addr - r.base)
	if off+uint64(n) > uint64(len(r.bytes)) {
		return nil, false
	}
	return r.bytes[off : off+uint64(n)], true
}

func (m *MemView) WordAt(addr ir.Address) (uint64, bool) {
	b, ok := m.bytesAt(addr, 8)
	if !ok {
		// Fall back to a 4-byte read for images that don't have a full
		// word of data remaining (e.g. right at the end of a section).
		b4, ok4 := m.bytesAt(addr, 4)
		if !ok4 {
			return 0, false
		}
		return uint64(binary.LittleEndian.Uint32(b4)), true
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m *MemView) StringAt(addr ir.Address) (string, bool) {
	r, ok := m.find(addr)
	if !ok {
		return "", false
	}
	off := uint64(addr - r.base)
	end := off
	for end < uint64(len(r.bytes)) && r.bytes[end] != 0 {
		end++
	}
	if end >= uint64(len(r.bytes)) {
		return "", false // not NUL-terminated within this region
	}
	return string(r.bytes[off:end]), true
}

func (m *MemView) Constant(t ir.Type, addr ir.Address, wide bool) (ir.Value, error) {
	return readConstant(m, t, addr, wide)
}

func readConstant(v View, t ir.Type, addr ir.Address, wide bool) (ir.Value, error) {
	switch t := t.(type) {
	case *ir.IntType:
		w, ok := v.WordAt(addr)
		if !ok {
			// A word read fails in the last few bytes of a region; an
			// integer narrower than a word may still fit there.
			if mv, isMem := v.(*MemView); isMem {
				var b []byte
				b, ok = mv.bytesAt(addr, int((t.Bits+7)/8))
				for i := len(b) - 1; i >= 0; i-- {
					w = w<<8 | uint64(b[i])
				}
			}
		}
		if !ok {
			return nil, errors.Wrapf(ErrOutOfRange, "reading i%d at %#x", t.Bits, addr)
		}
		mask := uint64(1)<<uint(t.Bits) - 1
		if t.Bits >= 64 {
			mask = ^uint64(0)
		}
		return ir.NewConstInt(t, int64(w&mask)), nil
	case *ir.PointerType:
		w, ok := v.WordAt(addr)
		if !ok {
			return nil, errors.Wrapf(ErrOutOfRange, "reading pointer at %#x", addr)
		}
		return &ir.Const{Typ: t, Bits: w}, nil
	case *ir.FloatType:
		w, ok := v.WordAt(addr)
		if !ok {
			return nil, errors.Wrapf(ErrOutOfRange, "reading f%d at %#x", t.Bits, addr)
		}
		return &ir.Const{Typ: t, Bits: w}, nil
	case *ir.ArrayType:
		fields := make([]ir.Value, t.Count)
		elemWidthBytes := elemSizeBytes(t.Elem, wide)
		for i := uint64(0); i < t.Count; i++ {
			elemAddr := addr + ir.Address(i*elemWidthBytes)
			fv, err := readConstant(v, t.Elem, elemAddr, wide)
			if err != nil {
				return nil, err
			}
			fields[i] = fv
		}
		return &ir.ConstAggregate{Typ: t, Fields: fields}, nil
	case *ir.StructType:
		fields := make([]ir.Value, len(t.Fields))
		offset := ir.Address(0)
		for i, ft := range t.Fields {
			fv, err := readConstant(v, ft, addr+offset, wide)
			if err != nil {
				return nil, err
			}
			fields[i] = fv
			offset += ir.Address(elemSizeBytes(ft, wide))
		}
		return &ir.ConstAggregate{Typ: t, Fields: fields}, nil
	default:
		return nil, errors.Errorf("image: cannot materialize constant of type %s", t)
	}
}

func elemSizeBytes(t ir.Type, wide bool) uint64 {
	switch t := t.(type) {
	case *ir.IntType:
		if wide && t.Bits == 8 {
			return 2 // wide-string character unit, per GlobalObject.WideString
		}
		return uint64(t.Bits+7) / 8
	case *ir.FloatType:
		return uint64(t.Bits+7) / 8
	case *ir.PointerType:
		return 8
	}
	return 1
}
