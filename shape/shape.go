// Package shape describes the fixed layout of serializable Go structs.
//
// A *Struct lists the fields of a Go struct type in declaration order together with the
// kind of each field: integer, float, boolean, string, nested struct or fixed-size array.
// Descriptors are built once per Go type, cached for the life of the process and never
// modified afterwards, so they can be shared freely between goroutines.
//
// Only value types with a compile-time size are accepted. Slices, maps, pointers and
// interfaces are rejected because the wire format mirrors the struct exactly: every field is
// always present and every array slot is always serialized.
package shape

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const tagKey = "json"

// Kind classifies a field's value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindStruct
	KindArray
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInteger: "integer",
	KindFloat:   "float",
	KindBoolean: "boolean",
	KindString:  "string",
	KindStruct:  "struct",
	KindArray:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	ErrNotStruct       = errors.New("shape: type is not a struct")
	ErrUnsupportedType = errors.New("shape: unsupported field type")
	ErrDuplicateField  = errors.New("shape: duplicate field name")
	ErrEmbeddedField   = errors.New("shape: embedded field without a json name")
)

// Type describes a value. Bits and Signed apply to integers (Bits also to floats), Len and
// Elem to arrays, Struct to nested structs.
type Type struct {
	Kind   Kind
	Bits   int
	Signed bool
	Len    int
	Elem   *Type
	Struct *Struct

	goType reflect.Type
}

// GoType returns the Go type the descriptor was built from.
func (t *Type) GoType() reflect.Type {
	return t.goType
}

func (t *Type) String() string {
	switch t.Kind {
	case KindInteger:
		if t.Signed {
			return "int" + strconv.Itoa(t.Bits)
		}
		return "uint" + strconv.Itoa(t.Bits)
	case KindFloat:
		return "float" + strconv.Itoa(t.Bits)
	case KindBoolean:
		return "bool"
	case KindString:
		return "string"
	case KindStruct:
		return t.Struct.Name()
	case KindArray:
		return "[" + strconv.Itoa(t.Len) + "]" + t.Elem.String()
	}
	return t.Kind.String()
}

// Field is one serialized struct field. Name is the JSON key and Index the position of the
// field in the Go struct.
type Field struct {
	Name   string
	GoName string
	Index  int
	Type   *Type
}

// Struct is the immutable descriptor of a struct type.
type Struct struct {
	goType reflect.Type
	fields []Field
	byName map[string]int
}

// Name returns the Go type name.
func (s *Struct) Name() string {
	if name := s.goType.Name(); name != "" {
		return name
	}
	return s.goType.String()
}

// GoType returns the described struct type.
func (s *Struct) GoType() reflect.Type {
	return s.goType
}

// NumField returns the number of serialized fields.
func (s *Struct) NumField() int {
	return len(s.fields)
}

// Field returns the i'th serialized field in declaration order.
func (s *Struct) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the field list.
func (s *Struct) Fields() []Field {
	return slices.Clone(s.fields)
}

// Lookup returns the position of the field with the given JSON name.
func (s *Struct) Lookup(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

var cache sync.Map // map[reflect.Type]*Struct

// Of returns the descriptor for struct type T.
func Of[T any]() (*Struct, error) {
	return OfType(reflect.TypeFor[T]())
}

// MustOf is like Of but panics on error. It is meant for package-level variables in
// generated code.
func MustOf[T any]() *Struct {
	s, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// OfType returns the descriptor for the struct type t.
func OfType(t reflect.Type) (*Struct, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrNotStruct, "%v", t)
	}
	if s, ok := cache.Load(t); ok {
		return s.(*Struct), nil
	}
	s, err := build(t)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(t, s)
	return actual.(*Struct), nil
}

func build(t reflect.Type) (*Struct, error) {
	s := &Struct{
		goType: t,
		fields: make([]Field, 0, t.NumField()),
		byName: make(map[string]int, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := fieldName(sf)
		if skip {
			continue
		}
		path := t.Name() + "." + sf.Name
		// Embedded fields are not flattened; they need an explicit key.
		if sf.Anonymous && !hasTagName(sf) {
			return nil, errors.Wrapf(ErrEmbeddedField, "%s", path)
		}
		if _, dup := s.byName[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateField, "%s: %q", path, name)
		}
		ft, err := typeOf(sf.Type, path)
		if err != nil {
			return nil, err
		}
		s.byName[name] = len(s.fields)
		s.fields = append(s.fields, Field{Name: name, GoName: sf.Name, Index: i, Type: ft})
	}
	return s, nil
}

// fieldName applies the json tag. Options such as omitempty are ignored: fields are never
// elided.
func fieldName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup(tagKey)
	if !ok {
		return sf.Name, false
	}
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name, false
	}
	return name, false
}

func hasTagName(sf reflect.StructField) bool {
	name, _, _ := strings.Cut(sf.Tag.Get(tagKey), ",")
	return name != ""
}

func typeOf(t reflect.Type, path string) (*Type, error) {
	switch t.Kind() {
	case reflect.Int:
		return &Type{Kind: KindInteger, Bits: strconv.IntSize, Signed: true, goType: t}, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Type{Kind: KindInteger, Bits: t.Bits(), Signed: true, goType: t}, nil
	case reflect.Uint:
		return &Type{Kind: KindInteger, Bits: strconv.IntSize, goType: t}, nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Type{Kind: KindInteger, Bits: t.Bits(), goType: t}, nil
	case reflect.Float32, reflect.Float64:
		return &Type{Kind: KindFloat, Bits: t.Bits(), goType: t}, nil
	case reflect.Bool:
		return &Type{Kind: KindBoolean, goType: t}, nil
	case reflect.String:
		return &Type{Kind: KindString, goType: t}, nil
	case reflect.Struct:
		nested, err := OfType(t)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindStruct, Struct: nested, goType: t}, nil
	case reflect.Array:
		elem, err := typeOf(t.Elem(), path+"[]")
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindArray, Len: t.Len(), Elem: elem, goType: t}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s has type %s", path, t)
}

// Describe renders the descriptor tree, one field per line. It is used by tooling and
// tests to compare layouts.
func (s *Struct) Describe() string {
	var b strings.Builder
	s.describe(&b, "")
	return b.String()
}

func (s *Struct) describe(b *strings.Builder, indent string) {
	for _, f := range s.fields {
		fmt.Fprintf(b, "%s%s %s\n", indent, f.Name, f.Type)
		t := f.Type
		for t.Kind == KindArray {
			t = t.Elem
		}
		if t.Kind == KindStruct {
			t.Struct.describe(b, indent+"  ")
		}
	}
}
