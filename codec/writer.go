package codec

import (
	"bytes"
	"io"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/mcncl/jsonshape/emitter"
	"github.com/mcncl/jsonshape/jsonerr"
	"github.com/mcncl/jsonshape/shape"
)

// Serialize writes v as a JSON object to w. v must be a non-nil pointer to the struct type
// described by s. Fields are emitted in descriptor order and every array slot is written,
// so equal values always produce identical bytes.
//
// On failure the sink holds an unspecified prefix of the document.
func Serialize(w io.Writer, v any, s *shape.Struct) error {
	rv, err := target(v, s)
	if err != nil {
		return err
	}
	sw := &writer{e: emitter.New(w)}
	if err := sw.object(s, rv); err != nil {
		return err
	}
	return sw.check(sw.e.Flush())
}

// Marshal returns the JSON encoding of v.
func Marshal(v any, s *shape.Struct) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, v, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode serializes v using the cached descriptor of T.
func Encode[T any](w io.Writer, v *T) error {
	s, err := shape.Of[T]()
	if err != nil {
		return err
	}
	return Serialize(w, v, s)
}

type writer struct {
	e    *emitter.Emitter
	path path
}

// check attaches the current field path to runtime errors.
func (w *writer) check(err error) error {
	if err == nil {
		return nil
	}
	var e *jsonerr.Error
	if errors.As(err, &e) {
		return e.WithPath(w.path.String())
	}
	return err
}

func (w *writer) object(s *shape.Struct, v reflect.Value) error {
	if err := w.e.Raw(emitter.BeginObject); err != nil {
		return w.check(err)
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if i > 0 {
			if err := w.e.Raw(emitter.Comma); err != nil {
				return w.check(err)
			}
		}
		w.path.pushField(f.Name)
		if err := w.e.String(f.Name); err != nil {
			return w.check(err)
		}
		if err := w.e.Raw(emitter.Colon); err != nil {
			return w.check(err)
		}
		if err := w.value(f.Type, v.Field(f.Index)); err != nil {
			return err
		}
		w.path.pop()
	}
	return w.check(w.e.Raw(emitter.EndObject))
}

func (w *writer) array(t *shape.Type, v reflect.Value) error {
	if err := w.e.Raw(emitter.BeginArray); err != nil {
		return w.check(err)
	}
	for i := 0; i < t.Len; i++ {
		if i > 0 {
			if err := w.e.Raw(emitter.Comma); err != nil {
				return w.check(err)
			}
		}
		w.path.pushIndex(i)
		if err := w.value(t.Elem, v.Index(i)); err != nil {
			return err
		}
		w.path.pop()
	}
	return w.check(w.e.Raw(emitter.EndArray))
}

func (w *writer) value(t *shape.Type, v reflect.Value) error {
	var err error
	switch t.Kind {
	case shape.KindInteger:
		if t.Signed {
			err = w.e.Int(v.Int())
		} else {
			err = w.e.Uint(v.Uint())
		}
	case shape.KindFloat:
		err = w.e.Float(v.Float(), t.Bits)
	case shape.KindBoolean:
		err = w.e.Bool(v.Bool())
	case shape.KindString:
		err = w.e.String(v.String())
	case shape.KindStruct:
		return w.object(t.Struct, v)
	case shape.KindArray:
		return w.array(t, v)
	default:
		return errors.AssertionFailedf("codec: unexpected kind %s", t.Kind)
	}
	return w.check(err)
}
