// Package codec converts fixed-shape Go structs to and from JSON text.
//
// A single reflection-driven engine walks a value using the immutable descriptor produced by
// package shape. Serialization streams through an emitter and deserialization pulls tokens
// from a lexer; no intermediate document tree is built in either direction.
//
// Generated code normally binds a descriptor once and calls Serialize and Deserialize from
// small per-type functions:
//
//	var dummyStructShape = shape.MustOf[DummyStruct]()
//
//	func SerializeDummyStruct(w io.Writer, v *DummyStruct) error {
//		return codec.Serialize(w, v, dummyStructShape)
//	}
//
// All failures are *jsonerr.Error values except ErrTargetType, which reports a programming
// mistake rather than bad data.
package codec

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mcncl/jsonshape/shape"
)

// MaxDepth bounds the nesting of unknown values skipped by the reader.
const MaxDepth = 512

// ErrTargetType is returned when the value passed to Serialize or Deserialize is not a
// non-nil pointer to the struct type of the descriptor.
var ErrTargetType = errors.New("codec: value does not match descriptor")

// target checks that v is a non-nil *T where T is the descriptor's type and returns the
// addressable struct value.
func target(v any, s *shape.Struct) (reflect.Value, error) {
	if s == nil {
		return reflect.Value{}, errors.Wrap(ErrTargetType, "nil descriptor")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errors.Wrapf(ErrTargetType, "want non-nil *%s, got %T", s.Name(), v)
	}
	if rv.Elem().Type() != s.GoType() {
		return reflect.Value{}, errors.Wrapf(ErrTargetType, "want *%s, got %T", s.Name(), v)
	}
	return rv.Elem(), nil
}

// segment is one step of a field path: a JSON key, or an array index when name is empty.
type segment struct {
	name  string
	index int
}

// path tracks the location of the value being processed for error messages.
type path []segment

func (p *path) pushField(name string) {
	*p = append(*p, segment{name: name})
}

func (p *path) pushIndex(i int) {
	*p = append(*p, segment{index: i})
}

func (p *path) pop() {
	*p = (*p)[:len(*p)-1]
}

func (p path) String() string {
	var b strings.Builder
	for _, s := range p {
		if s.name == "" {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.name)
	}
	return b.String()
}
