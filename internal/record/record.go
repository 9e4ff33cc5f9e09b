// Package record defines fixed-width table schemas and the record values
// that live inside heap-file slots. Offsets and type widths are grounded
// on original_source/record_mgr.c's getAttr/setAttr, adapted from that
// file's byte-offset arithmetic into Go struct/slice access.
package record

import (
	"errors"
	"fmt"
)

// AttrType is the fixed-width wire type of one schema attribute.
type AttrType int

const (
	TypeInt AttrType = iota
	TypeFloat
	TypeBool
	TypeString
)

func (t AttrType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeBool:
		return "BOOL"
	case TypeString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Attribute describes one column: its name, type, and (for STRING only)
// its fixed on-disk length.
type Attribute struct {
	Name   string
	Type   AttrType
	Length int // meaningful only when Type == TypeString
}

// Width returns the fixed number of bytes this attribute occupies in a
// record's payload: INT=4, FLOAT=4, BOOL=1, STRING=Length.
func (a Attribute) Width() int {
	switch a.Type {
	case TypeInt, TypeFloat:
		return 4
	case TypeBool:
		return 1
	case TypeString:
		return a.Length
	default:
		return 0
	}
}

// Schema is an ordered list of attributes plus the subset that forms the
// table's key, mirroring original_source/record_mgr.c's Schema struct.
type Schema struct {
	Attrs    []Attribute
	KeyAttrs []int
}

// RecordSize returns the total fixed payload width of one record under
// this schema (computeRecordSize in the original).
func (s Schema) RecordSize() int {
	total := 0
	for _, a := range s.Attrs {
		total += a.Width()
	}
	return total
}

// offset returns the byte offset of attribute idx within a record's
// payload.
func (s Schema) offset(idx int) int {
	off := 0
	for i := 0; i < idx; i++ {
		off += s.Attrs[i].Width()
	}
	return off
}

// Value is a tagged union holding exactly one attribute's value.
type Value struct {
	Type    AttrType
	IntV    int32
	FloatV  float32
	BoolV   bool
	StringV string
}

func IntValue(v int32) Value     { return Value{Type: TypeInt, IntV: v} }
func FloatValue(v float32) Value { return Value{Type: TypeFloat, FloatV: v} }
func BoolValue(v bool) Value     { return Value{Type: TypeBool, BoolV: v} }
func StringValue(v string) Value { return Value{Type: TypeString, StringV: v} }

// ErrTypeMismatch is returned when a Value's Type disagrees with the
// schema attribute it is read from or written to.
var ErrTypeMismatch = errors.New("record: value type mismatch")

// Record is one fixed-width tuple's raw payload bytes, sized exactly to
// its schema's RecordSize, plus the slot it currently occupies.
type Record struct {
	Data []byte
	Page uint32
	Slot uint16
}

// NewRecord allocates a zeroed record payload sized for schema.
func NewRecord(schema Schema) *Record {
	return &Record{Data: make([]byte, schema.RecordSize())}
}

// GetAttr reads attribute idx out of the record according to schema,
// mirroring original_source/record_mgr.c's getAttr byte-copy-then-cast
// logic.
func (r *Record) GetAttr(schema Schema, idx int) (Value, error) {
	if idx < 0 || idx >= len(schema.Attrs) {
		return Value{}, fmt.Errorf("record: attribute index %d out of range", idx)
	}
	attr := schema.Attrs[idx]
	off := schema.offset(idx)
	width := attr.Width()
	if off+width > len(r.Data) {
		return Value{}, fmt.Errorf("record: attribute %q out of bounds", attr.Name)
	}
	raw := r.Data[off : off+width]

	switch attr.Type {
	case TypeInt:
		return IntValue(decodeInt32(raw)), nil
	case TypeFloat:
		return FloatValue(decodeFloat32(raw)), nil
	case TypeBool:
		return BoolValue(raw[0] != 0), nil
	case TypeString:
		return StringValue(decodeFixedString(raw)), nil
	default:
		return Value{}, fmt.Errorf("record: unknown attribute type %v", attr.Type)
	}
}

// SetAttr writes v into attribute idx's slot in the record, per schema.
// A STRING value longer than the attribute's fixed length is silently
// truncated.
func (r *Record) SetAttr(schema Schema, idx int, v Value) error {
	if idx < 0 || idx >= len(schema.Attrs) {
		return fmt.Errorf("record: attribute index %d out of range", idx)
	}
	attr := schema.Attrs[idx]
	if v.Type != attr.Type {
		return ErrTypeMismatch
	}
	off := schema.offset(idx)
	width := attr.Width()
	if off+width > len(r.Data) {
		return fmt.Errorf("record: attribute %q out of bounds", attr.Name)
	}
	dst := r.Data[off : off+width]

	switch attr.Type {
	case TypeInt:
		encodeInt32(dst, v.IntV)
	case TypeFloat:
		encodeFloat32(dst, v.FloatV)
	case TypeBool:
		if v.BoolV {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case TypeString:
		encodeFixedString(dst, v.StringV)
	default:
		return fmt.Errorf("record: unknown attribute type %v", attr.Type)
	}
	return nil
}
