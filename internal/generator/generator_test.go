package generator

import (
	"go/format"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonshape/internal/config"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/internal/schema"
)

func load(t *testing.T, src string) *models.File {
	t.Helper()
	f, err := schema.ParseString(src)
	require.NoError(t, err)
	require.NoError(t, schema.Validate(f, nil))
	return f
}

const dummySchema = `
package: state
serialize_prefix: DUMMY_SERIALIZE_
deserialize_prefix: DUMMY_DESERIALIZE_
types:
  - name: Inner
    fields:
      - {name: some_int, type: int32}
  - name: DummyStruct
    fields:
      - {name: array_of_inner, type: "[1]Inner"}
`

func TestGenerate_DummySchema(t *testing.T) {
	f := load(t, dummySchema)

	result, err := NewGenerator().Generate(f)
	require.NoError(t, err)

	expectedCode := "// Code generated by jsonshape. DO NOT EDIT.\n" + `
package state

import (
	"io"

	"github.com/mcncl/jsonshape/codec"
	"github.com/mcncl/jsonshape/shape"
)

type Inner struct {
	SomeInt int32 ` + "`json:\"some_int\"`" + `
}

var innerShape = shape.MustOf[Inner]()

// DUMMY_SERIALIZE_Inner writes v to w as a single JSON document.
func DUMMY_SERIALIZE_Inner(w io.Writer, v *Inner) error {
	return codec.Serialize(w, v, innerShape)
}

// DUMMY_DESERIALIZE_Inner reads a single JSON document from r into v.
func DUMMY_DESERIALIZE_Inner(r io.Reader, v *Inner) error {
	return codec.Deserialize(r, v, innerShape)
}

type DummyStruct struct {
	ArrayOfInner [1]Inner ` + "`json:\"array_of_inner\"`" + `
}

var dummyStructShape = shape.MustOf[DummyStruct]()

// DUMMY_SERIALIZE_DummyStruct writes v to w as a single JSON document.
func DUMMY_SERIALIZE_DummyStruct(w io.Writer, v *DummyStruct) error {
	return codec.Serialize(w, v, dummyStructShape)
}

// DUMMY_DESERIALIZE_DummyStruct reads a single JSON document from r into v.
func DUMMY_DESERIALIZE_DummyStruct(r io.Reader, v *DummyStruct) error {
	return codec.Deserialize(r, v, dummyStructShape)
}
`
	assert.Equal(t, expectedCode, result)

	formatted, err := format.Source([]byte(result))
	require.NoError(t, err)
	assert.Equal(t, result, string(formatted), "output is already gofmt-clean")
}

func TestGenerate_FieldAlignmentAndOrder(t *testing.T) {
	f := load(t, `
package: main
types:
  - name: Person
    fields:
      - {name: name, type: string}
      - {name: age, type: int64}
      - {name: is_active, type: bool}
      - {name: scores, type: float64, len: 3}
`)

	cfg := config.NewConfig()
	cfg.Shims.Enabled = false
	result, err := NewGeneratorWithConfig(cfg).Generate(f)
	require.NoError(t, err)

	expectedCode := "// Code generated by jsonshape. DO NOT EDIT.\n" + `
package main

type Person struct {
	Name     string     ` + "`json:\"name\"`" + `
	Age      int64      ` + "`json:\"age\"`" + `
	IsActive bool       ` + "`json:\"is_active\"`" + `
	Scores   [3]float64 ` + "`json:\"scores\"`" + `
}
`
	assert.Equal(t, expectedCode, result, "fields keep declaration order")
}

func TestGenerate_DecodeOptions(t *testing.T) {
	f := load(t, `
require_all_fields: true
disallow_trailing: true
types:
  - {name: Point, fields: [{name: x, type: float32}, {name: y, type: float32}]}
`)

	result, err := NewGenerator().Generate(f)
	require.NoError(t, err)
	assert.Contains(t, result, "return codec.Deserialize(r, v, pointShape, codec.RequireAllFields(), codec.DisallowTrailing())")
	assert.Contains(t, result, "func SerializePoint(w io.Writer, v *Point) error {")
	assert.Contains(t, result, "func DeserializePoint(r io.Reader, v *Point) error {")
}

func TestGenerate_CommentsHeaderAndSource(t *testing.T) {
	f := load(t, `
types:
  - name: Sample
    comment: Sample is inferred.
    fields:
      - {name: note, type: string, comment: always null in the sample}
      - {name: "-", go_name: Dash, type: bool}
  - name: Empty
    fields: []
`)
	f.Source = "/tmp/schemas/sample.yml"

	cfg := config.NewConfig()
	cfg.Output.FileHeader = "Regenerate with go generate."
	result, err := NewGeneratorWithConfig(cfg).Generate(f)
	require.NoError(t, err)

	assert.Contains(t, result, "// Code generated by jsonshape from sample.yml. DO NOT EDIT.\n\n// Regenerate with go generate.\n\npackage main\n")
	assert.Contains(t, result, "// Sample is inferred.\ntype Sample struct {\n")
	assert.Contains(t, result, "\t// always null in the sample\n\tNote string `json:\"note\"`\n")
	assert.Contains(t, result, "Dash bool   `json:\"-,\"`")
	assert.Contains(t, result, "type Empty struct{}\n")
	assert.Contains(t, result, "var emptyShape = shape.MustOf[Empty]()")

	_, err = format.Source([]byte(result))
	require.NoError(t, err, "generated code parses")
}

func TestGenerate_UnvalidatedSchema(t *testing.T) {
	f, err := schema.ParseString(dummySchema)
	require.NoError(t, err)

	_, err = NewGenerator().Generate(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate the schema first")
}
