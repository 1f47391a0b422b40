// Package dynamic builds Go struct types at run time from a validated schema so that
// documents can be checked and re-serialized without generating and compiling code.
package dynamic

import (
	"io"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/mcncl/jsonshape/codec"
	apperrors "github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/internal/schema"
	"github.com/mcncl/jsonshape/shape"
)

var scalarTypes = map[string]reflect.Type{
	"int":     reflect.TypeOf(int(0)),
	"int8":    reflect.TypeOf(int8(0)),
	"int16":   reflect.TypeOf(int16(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"uint":    reflect.TypeOf(uint(0)),
	"uint8":   reflect.TypeOf(uint8(0)),
	"uint16":  reflect.TypeOf(uint16(0)),
	"uint32":  reflect.TypeOf(uint32(0)),
	"uint64":  reflect.TypeOf(uint64(0)),
	"float32": reflect.TypeOf(float32(0)),
	"float64": reflect.TypeOf(float64(0)),
	"bool":    reflect.TypeOf(false),
	"string":  reflect.TypeOf(""),
}

// Types holds the struct types built for one schema.
type Types struct {
	file  *models.File
	types map[string]reflect.Type
}

// Build creates a struct type for every declaration of f. The schema must have passed
// schema.Validate.
func Build(f *models.File) (*Types, error) {
	t := &Types{file: f, types: make(map[string]reflect.Type, len(f.Types))}
	for _, td := range f.Types {
		if _, err := t.build(td.Name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Types) build(name string) (reflect.Type, error) {
	if rt, ok := t.types[name]; ok {
		return rt, nil
	}
	td, ok := t.file.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrUnknownType, "%q", name)
	}

	fields := make([]reflect.StructField, 0, len(td.Fields))
	for _, fd := range td.Fields {
		if fd.Ref == nil {
			return nil, errors.Newf("field %s.%s has no resolved type", td.Name, fd.Name)
		}
		ft, err := t.resolve(fd.Ref)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", td.Name, fd.Name)
		}
		fields = append(fields, reflect.StructField{
			Name: fd.GoName,
			Type: ft,
			Tag:  reflect.StructTag(schema.StructTag(fd.Name)),
		})
	}

	rt := reflect.StructOf(fields)
	t.types[name] = rt
	return rt, nil
}

func (t *Types) resolve(ref *models.TypeRef) (reflect.Type, error) {
	switch ref.Kind {
	case models.Scalar:
		rt, ok := scalarTypes[ref.Name]
		if !ok {
			return nil, errors.Wrapf(apperrors.ErrUnknownType, "scalar %q", ref.Name)
		}
		return rt, nil
	case models.Named:
		return t.build(ref.Name)
	case models.Array:
		elem, err := t.resolve(ref.Elem)
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(ref.Len, elem), nil
	}
	return nil, errors.Newf("unexpected reference kind %d", ref.Kind)
}

// Type returns the struct type built for the named declaration.
func (t *Types) Type(name string) (reflect.Type, error) {
	rt, ok := t.types[name]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrUnknownType, "%q", name)
	}
	return rt, nil
}

// Value is a zero-initialized instance of a schema type together with its descriptor.
type Value struct {
	Name  string
	Ptr   any
	Shape *shape.Struct

	decodeOpts []codec.Option
}

// New allocates a value of the named type. The schema's decode settings become the
// default options of Decode.
func (t *Types) New(name string) (*Value, error) {
	rt, err := t.Type(name)
	if err != nil {
		return nil, err
	}
	s, err := shape.OfType(rt)
	if err != nil {
		return nil, errors.Wrapf(err, "type %s", name)
	}

	var opts []codec.Option
	if t.file.RequireAllFields {
		opts = append(opts, codec.RequireAllFields())
	}
	if t.file.DisallowTrailing {
		opts = append(opts, codec.DisallowTrailing())
	}
	return &Value{Name: name, Ptr: reflect.New(rt).Interface(), Shape: s, decodeOpts: opts}, nil
}

// Decode reads one document from r into the value.
func (v *Value) Decode(r io.Reader, opts ...codec.Option) error {
	all := append(append([]codec.Option(nil), v.decodeOpts...), opts...)
	return codec.Deserialize(r, v.Ptr, v.Shape, all...)
}

// Encode writes the value to w.
func (v *Value) Encode(w io.Writer) error {
	return codec.Serialize(w, v.Ptr, v.Shape)
}
