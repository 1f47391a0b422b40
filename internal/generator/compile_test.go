package generator

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonshape/internal/schema"
)

// runtimeStubs declares just enough of the packages generated code imports for it to
// type-check without loading the module.
var runtimeStubs = map[string]string{
	"io": `package io

type Writer interface{ Write(p []byte) (int, error) }
type Reader interface{ Read(p []byte) (int, error) }
`,
	RuntimeModule + "/shape": `package shape

type Struct struct{}

func MustOf[T any]() *Struct { return nil }
`,
	RuntimeModule + "/codec": `package codec

import (
	"io"

	"github.com/mcncl/jsonshape/shape"
)

type Option func()

func RequireAllFields() Option { return nil }
func DisallowTrailing() Option { return nil }

func Serialize(w io.Writer, v any, s *shape.Struct) error { return nil }
func Deserialize(r io.Reader, v any, s *shape.Struct, opts ...Option) error { return nil }
`,
}

type stubImporter struct {
	fset     *token.FileSet
	packages map[string]*types.Package
}

func (s *stubImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := s.packages[path]; ok {
		return pkg, nil
	}
	src, ok := runtimeStubs[path]
	if !ok {
		return nil, errors.Newf("no stub for %q", path)
	}
	file, err := parser.ParseFile(s.fset, path+".go", src, 0)
	if err != nil {
		return nil, err
	}
	conf := types.Config{Importer: s}
	pkg, err := conf.Check(path, s.fset, []*ast.File{file}, nil)
	if err != nil {
		return nil, err
	}
	s.packages[path] = pkg
	return pkg, nil
}

// typeCheck parses and type-checks generated code as a package of its own.
func typeCheck(t *testing.T, code string) error {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "gen.go", code, 0)
	require.NoError(t, err, code)

	imp := &stubImporter{fset: fset, packages: map[string]*types.Package{}}
	conf := types.Config{Importer: imp}
	_, err = conf.Check(file.Name.Name, fset, []*ast.File{file}, nil)
	return err
}

func TestGenerate_TypeChecks(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{name: "dummy", schema: dummySchema},
		{
			name: "names close to generated identifiers",
			schema: `
package: main
require_all_fields: true
disallow_trailing: true
types:
  - {name: Reader, fields: [{name: w, type: Writer}]}
  - {name: Writer, fields: [{name: v, type: "[2]uint8"}]}
  - {name: Codec, fields: [{name: s, type: Shape}]}
  - {name: Shape, fields: [{name: o, type: Option}]}
  - {name: Option, fields: [{name: "-", go_name: Dash, type: bool}]}
  - {name: Struct, fields: []}
  - {name: Foo, fields: [{name: foo_shape, type: FooShape}]}
  - {name: FooShape, fields: [{name: e, type: "[3]Struct"}]}
`,
		},
		{
			name: "custom prefixes",
			schema: `
package: wire
serialize_prefix: Write
deserialize_prefix: Read
types:
  - {name: Er, fields: [{name: x, type: string}]}
  - {name: Point, fields: [{name: x, type: double}, {name: er, type: Er}]}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := load(t, tt.schema)
			code, err := NewGenerator().Generate(f)
			require.NoError(t, err)
			assert.NoError(t, typeCheck(t, code), code)
		})
	}
}

func TestGenerate_RejectedNamesWouldNotCompile(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{name: "import name", schema: "types: [{name: io, fields: []}]"},
		{name: "descriptor collision", schema: "types: [{name: Foo, fields: []}, {name: foo, fields: []}]"},
		{name: "shim collision", schema: "types: [{name: SerializeFoo, fields: []}, {name: Foo, fields: []}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := schema.ParseString(tt.schema)
			require.NoError(t, err)
			require.Error(t, schema.Validate(f, nil))

			// Render the rejected names anyway; the fields are empty so nothing needs resolving.
			f.Package = "state"
			f.SerializePrefix, f.DeserializePrefix = "Serialize", "Deserialize"
			code, err := NewGenerator().Generate(f)
			require.NoError(t, err)
			assert.Error(t, typeCheck(t, code))
		})
	}
}
