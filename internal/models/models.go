package models

import (
	"strconv"
	"strings"
)

// File is a schema document: a set of struct declarations plus the settings used when
// generating code for them.
type File struct {
	Package           string     `yaml:"package" json:"package"`
	SerializePrefix   string     `yaml:"serialize_prefix,omitempty" json:"serialize_prefix,omitempty"`
	DeserializePrefix string     `yaml:"deserialize_prefix,omitempty" json:"deserialize_prefix,omitempty"`
	RequireAllFields  bool       `yaml:"require_all_fields,omitempty" json:"require_all_fields,omitempty"`
	DisallowTrailing  bool       `yaml:"disallow_trailing,omitempty" json:"disallow_trailing,omitempty"`
	Types             []TypeDecl `yaml:"types" json:"types"`

	// Source is the path the file was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Lookup returns the declaration with the given name.
func (f *File) Lookup(name string) (*TypeDecl, bool) {
	for i := range f.Types {
		if f.Types[i].Name == name {
			return &f.Types[i], true
		}
	}
	return nil, false
}

// TypeDecl declares one struct type.
type TypeDecl struct {
	Name    string      `yaml:"name" json:"name"`
	Comment string      `yaml:"comment,omitempty" json:"comment,omitempty"`
	Fields  []FieldDecl `yaml:"fields" json:"fields"`
}

// FieldDecl declares one struct field. Name is the JSON key; GoName overrides the derived
// Go identifier. Type is a type expression such as "int32", "Inner" or "[4][2]float64".
// A non-zero Len wraps the type in one more array dimension.
type FieldDecl struct {
	Name    string `yaml:"name" json:"name"`
	GoName  string `yaml:"go_name,omitempty" json:"go_name,omitempty"`
	Type    string `yaml:"type" json:"type"`
	Len     int    `yaml:"len,omitempty" json:"len,omitempty"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty"`

	// Resolved by schema validation.
	Ref *TypeRef `yaml:"-" json:"-"`
}

// RefKind classifies a resolved field type.
type RefKind int

const (
	Scalar RefKind = iota
	Named
	Array
)

// TypeRef is a parsed type expression.
type TypeRef struct {
	Kind RefKind
	// Name is the Go scalar type for Scalar and the declared type name for Named.
	Name string
	Len  int
	Elem *TypeRef
}

// String renders the reference as a Go type expression.
func (t *TypeRef) String() string {
	if t.Kind == Array {
		return "[" + strconv.Itoa(t.Len) + "]" + t.Elem.String()
	}
	return t.Name
}

// Base returns the innermost element type.
func (t *TypeRef) Base() *TypeRef {
	for t.Kind == Array {
		t = t.Elem
	}
	return t
}

// JSONKind identifies the kind of a parsed JSON value.
type JSONKind int

const (
	Null JSONKind = iota
	Bool
	Number
	String
	Object
	ArrayValue
)

func (k JSONKind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case ArrayValue:
		return "array"
	}
	return "JSONKind(" + strconv.Itoa(int(k)) + ")"
}

// JSONValue is a node of a parsed sample document. Objects keep their members in
// document order.
type JSONValue struct {
	Kind    JSONKind
	Offset  int64
	Bool    bool
	Text    string // decoded string or raw number literal
	Members []Member
	Items   []*JSONValue
}

// Member is one key of a JSON object.
type Member struct {
	Key   string
	Value *JSONValue
}

// Get returns the value of the first member named key.
func (v *JSONValue) Get(key string) (*JSONValue, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// IsInteger reports whether a number node has neither fraction nor exponent.
func (v *JSONValue) IsInteger() bool {
	return v.Kind == Number && !strings.ContainsAny(v.Text, ".eE")
}

// IntermediateRepresentation holds a parsed sample document for the analyzer.
type IntermediateRepresentation struct {
	Root        *JSONValue
	RootIsArray bool
}
