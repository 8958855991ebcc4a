package types

import (
	"fmt"
	"math"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// MaxFieldDepth bounds nesting of Optional/Array/List/Struct types and values.
const MaxFieldDepth = 16

// FieldKind enumerates the primitive and composite types a job parameter can take.
type FieldKind uint8

const (
	FieldVoid FieldKind = iota
	FieldBool
	FieldUint8
	FieldInt8
	FieldUint16
	FieldInt16
	FieldUint32
	FieldInt32
	FieldUint64
	FieldInt64
	FieldString
	FieldBytes
	FieldAccountID
	FieldOptional
	FieldArray
	FieldList
	FieldStruct
)

var fieldKindNames = map[FieldKind]string{
	FieldVoid:      "void",
	FieldBool:      "bool",
	FieldUint8:     "uint8",
	FieldInt8:      "int8",
	FieldUint16:    "uint16",
	FieldInt16:     "int16",
	FieldUint32:    "uint32",
	FieldInt32:     "int32",
	FieldUint64:    "uint64",
	FieldInt64:     "int64",
	FieldString:    "string",
	FieldBytes:     "bytes",
	FieldAccountID: "account_id",
	FieldOptional:  "optional",
	FieldArray:     "array",
	FieldList:      "list",
	FieldStruct:    "struct",
}

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("field_kind(%d)", uint8(k))
}

// FieldType describes the declared type of a job parameter or result.
type FieldType struct {
	Kind FieldKind `json:"kind"`
	// Elem is the element type of Optional, Array and List.
	Elem *FieldType `json:"elem,omitempty"`
	// Len is the fixed length of an Array.
	Len uint64 `json:"len,omitempty"`
	// Name and Fields describe a Struct.
	Name   string            `json:"name,omitempty"`
	Fields []StructFieldType `json:"fields,omitempty"`
}

// StructFieldType is a named member of a Struct type.
type StructFieldType struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Primitive returns a type of a non-composite kind.
func Primitive(kind FieldKind) FieldType { return FieldType{Kind: kind} }

// OptionalOf returns Optional(elem).
func OptionalOf(elem FieldType) FieldType { return FieldType{Kind: FieldOptional, Elem: &elem} }

// ArrayOf returns Array(n, elem).
func ArrayOf(n uint64, elem FieldType) FieldType {
	return FieldType{Kind: FieldArray, Len: n, Elem: &elem}
}

// ListOf returns List(elem).
func ListOf(elem FieldType) FieldType { return FieldType{Kind: FieldList, Elem: &elem} }

// StructOf returns a named struct type.
func StructOf(name string, fields ...StructFieldType) FieldType {
	return FieldType{Kind: FieldStruct, Name: name, Fields: fields}
}

// Validate checks that the type is well formed.
func (t FieldType) Validate() error {
	return t.validate(0)
}

func (t FieldType) validate(depth int) error {
	if depth > MaxFieldDepth {
		return fmt.Errorf("type nesting exceeds %d", MaxFieldDepth)
	}
	switch t.Kind {
	case FieldOptional, FieldArray, FieldList:
		if t.Elem == nil {
			return fmt.Errorf("%s type requires an element type", t.Kind)
		}
		return t.Elem.validate(depth + 1)
	case FieldStruct:
		seen := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("struct %q declares field %q twice", t.Name, f.Name)
			}
			seen[f.Name] = struct{}{}
			if err := f.Type.validate(depth + 1); err != nil {
				return fmt.Errorf("struct %q field %q: %w", t.Name, f.Name, err)
			}
		}
		return nil
	default:
		if _, ok := fieldKindNames[t.Kind]; !ok {
			return fmt.Errorf("unknown field kind %d", t.Kind)
		}
		return nil
	}
}

// Field is a typed value passed as a job argument, job result, or request argument.
type Field struct {
	Kind FieldKind `json:"kind"`
	Bool bool      `json:"bool,omitempty"`
	Uint uint64    `json:"uint,omitempty"`
	Int  int64     `json:"int,omitempty"`
	// Str holds String values and bech32 AccountID values.
	Str   string       `json:"str,omitempty"`
	Bytes []byte       `json:"bytes,omitempty"`
	Items []Field      `json:"items,omitempty"`
	Name  string       `json:"name,omitempty"`
	Named []NamedField `json:"named,omitempty"`
}

// NamedField is one member of a Struct value.
type NamedField struct {
	Name  string `json:"name"`
	Value Field  `json:"value"`
}

func VoidField() Field                    { return Field{Kind: FieldVoid} }
func BoolField(v bool) Field              { return Field{Kind: FieldBool, Bool: v} }
func Uint8Field(v uint8) Field            { return Field{Kind: FieldUint8, Uint: uint64(v)} }
func Int8Field(v int8) Field              { return Field{Kind: FieldInt8, Int: int64(v)} }
func Uint16Field(v uint16) Field          { return Field{Kind: FieldUint16, Uint: uint64(v)} }
func Int16Field(v int16) Field            { return Field{Kind: FieldInt16, Int: int64(v)} }
func Uint32Field(v uint32) Field          { return Field{Kind: FieldUint32, Uint: uint64(v)} }
func Int32Field(v int32) Field            { return Field{Kind: FieldInt32, Int: int64(v)} }
func Uint64Field(v uint64) Field          { return Field{Kind: FieldUint64, Uint: v} }
func Int64Field(v int64) Field            { return Field{Kind: FieldInt64, Int: v} }
func StringField(v string) Field          { return Field{Kind: FieldString, Str: v} }
func BytesField(v []byte) Field           { return Field{Kind: FieldBytes, Bytes: v} }
func AccountField(v sdk.AccAddress) Field { return Field{Kind: FieldAccountID, Str: v.String()} }

// SomeField wraps v as a present Optional value.
func SomeField(v Field) Field { return Field{Kind: FieldOptional, Items: []Field{v}} }

// NoneField is an absent Optional value.
func NoneField() Field { return Field{Kind: FieldOptional} }

// ArrayField is a fixed-length sequence value.
func ArrayField(items ...Field) Field { return Field{Kind: FieldArray, Items: items} }

// ListField is a variable-length sequence value.
func ListField(items ...Field) Field { return Field{Kind: FieldList, Items: items} }

// StructField is a named struct value.
func StructField(name string, members ...NamedField) Field {
	return Field{Kind: FieldStruct, Name: name, Named: members}
}

// TypeCheck verifies that f is a value of type t.
func (f Field) TypeCheck(t FieldType) error {
	return f.typeCheck(t, 0)
}

func (f Field) typeCheck(t FieldType, depth int) error {
	if depth > MaxFieldDepth {
		return fmt.Errorf("value nesting exceeds %d", MaxFieldDepth)
	}
	if f.Kind != t.Kind {
		return fmt.Errorf("expected %s, got %s", t.Kind, f.Kind)
	}
	switch t.Kind {
	case FieldVoid, FieldBool, FieldString, FieldBytes:
		return nil
	case FieldUint8, FieldUint16, FieldUint32, FieldUint64:
		if f.Uint > unsignedMax(t.Kind) {
			return fmt.Errorf("%d overflows %s", f.Uint, t.Kind)
		}
		return nil
	case FieldInt8, FieldInt16, FieldInt32, FieldInt64:
		lo, hi := signedRange(t.Kind)
		if f.Int < lo || f.Int > hi {
			return fmt.Errorf("%d overflows %s", f.Int, t.Kind)
		}
		return nil
	case FieldAccountID:
		if _, err := sdk.AccAddressFromBech32(f.Str); err != nil {
			return fmt.Errorf("invalid account id: %w", err)
		}
		return nil
	case FieldOptional:
		if t.Elem == nil {
			return fmt.Errorf("optional type without element type")
		}
		if len(f.Items) > 1 {
			return fmt.Errorf("optional holds %d values", len(f.Items))
		}
		for _, item := range f.Items {
			if err := item.typeCheck(*t.Elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case FieldArray, FieldList:
		if t.Elem == nil {
			return fmt.Errorf("%s type without element type", t.Kind)
		}
		if t.Kind == FieldArray && uint64(len(f.Items)) != t.Len {
			return fmt.Errorf("array expects %d items, got %d", t.Len, len(f.Items))
		}
		for i, item := range f.Items {
			if err := item.typeCheck(*t.Elem, depth+1); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case FieldStruct:
		if f.Name != t.Name {
			return fmt.Errorf("expected struct %q, got %q", t.Name, f.Name)
		}
		if len(f.Named) != len(t.Fields) {
			return fmt.Errorf("struct %q expects %d fields, got %d", t.Name, len(t.Fields), len(f.Named))
		}
		for i, member := range f.Named {
			decl := t.Fields[i]
			if member.Name != decl.Name {
				return fmt.Errorf("struct %q field %d: expected %q, got %q", t.Name, i, decl.Name, member.Name)
			}
			if err := member.Value.typeCheck(decl.Type, depth+1); err != nil {
				return fmt.Errorf("struct %q field %q: %w", t.Name, decl.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown field kind %d", t.Kind)
	}
}

func unsignedMax(k FieldKind) uint64 {
	switch k {
	case FieldUint8:
		return math.MaxUint8
	case FieldUint16:
		return math.MaxUint16
	case FieldUint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

func signedRange(k FieldKind) (int64, int64) {
	switch k {
	case FieldInt8:
		return math.MinInt8, math.MaxInt8
	case FieldInt16:
		return math.MinInt16, math.MaxInt16
	case FieldInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// CheckFields type-checks a positional argument list against declared types.
func CheckFields(values []Field, declared []FieldType) error {
	if len(values) != len(declared) {
		return fmt.Errorf("expected %d values, got %d", len(declared), len(values))
	}
	for i, v := range values {
		if err := v.TypeCheck(declared[i]); err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
	}
	return nil
}
