package generator

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/mcncl/jsonshape/internal/config"
	"github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/internal/schema"
)

// RuntimeModule is the import path prefix of the runtime packages generated code calls.
const RuntimeModule = "github.com/mcncl/jsonshape"

// Generator turns a validated schema into Go source: one struct per declared type, in
// declaration order, each followed by its descriptor variable and serialize and
// deserialize shims.
type Generator struct {
	shims      bool
	fileHeader string
}

// NewGenerator creates a new Generator instance
func NewGenerator() *Generator {
	return NewGeneratorWithConfig(config.NewConfig())
}

// NewGeneratorWithConfig creates a Generator honoring the shim and output settings of cfg.
func NewGeneratorWithConfig(cfg *config.Config) *Generator {
	return &Generator{
		shims:      cfg.Shims.Enabled,
		fileHeader: cfg.Output.FileHeader,
	}
}

// Generate renders f. The schema must have passed schema.Validate.
func (g *Generator) Generate(f *models.File) (string, error) {
	var buf bytes.Buffer

	source := ""
	if f.Source != "" {
		source = " from " + filepath.Base(f.Source)
	}
	fmt.Fprintf(&buf, "// Code generated by jsonshape%s. DO NOT EDIT.\n\n", source)
	if g.fileHeader != "" {
		fmt.Fprintf(&buf, "// %s\n\n", g.fileHeader)
	}
	fmt.Fprintf(&buf, "package %s\n", f.Package)

	if g.shims && len(f.Types) > 0 {
		buf.WriteString("\nimport (\n")
		buf.WriteString("\t\"io\"\n\n")
		fmt.Fprintf(&buf, "\t%q\n", RuntimeModule+"/codec")
		fmt.Fprintf(&buf, "\t%q\n", RuntimeModule+"/shape")
		buf.WriteString(")\n")
	}

	options := decodeOptions(f)
	for _, td := range f.Types {
		buf.WriteString("\n")
		if err := writeStruct(&buf, td); err != nil {
			return "", err
		}
		if g.shims {
			writeShims(&buf, f, td, options)
		}
	}

	return buf.String(), nil
}

func writeStruct(buf *bytes.Buffer, td models.TypeDecl) error {
	if td.Comment != "" {
		fmt.Fprintf(buf, "// %s\n", td.Comment)
	}
	if len(td.Fields) == 0 {
		fmt.Fprintf(buf, "type %s struct{}\n", td.Name)
		return nil
	}

	types := make([]string, len(td.Fields))
	for i, field := range td.Fields {
		if field.Ref == nil {
			return errors.NewGenerateError(
				fmt.Sprintf("field %s.%s has no resolved type; validate the schema first", td.Name, field.Name), nil)
		}
		types[i] = field.Ref.String()
	}

	// Calculate the maximum width for field names and types for proper alignment
	maxNameWidth := lo.Max(lo.Map(td.Fields, func(f models.FieldDecl, _ int) int { return len(f.GoName) }))
	maxTypeWidth := lo.Max(lo.Map(types, func(s string, _ int) int { return len(s) }))

	fmt.Fprintf(buf, "type %s struct {\n", td.Name)
	for i, field := range td.Fields {
		if field.Comment != "" {
			fmt.Fprintf(buf, "\t// %s\n", field.Comment)
		}
		fmt.Fprintf(buf, "\t%-*s %-*s `%s`\n",
			maxNameWidth, field.GoName,
			maxTypeWidth, types[i],
			schema.StructTag(field.Name))
	}
	buf.WriteString("}\n")
	return nil
}

func writeShims(buf *bytes.Buffer, f *models.File, td models.TypeDecl, options string) {
	shapeVar := schema.ShapeVar(td.Name)
	fmt.Fprintf(buf, "\nvar %s = shape.MustOf[%s]()\n", shapeVar, td.Name)

	serialize := f.SerializePrefix + td.Name
	fmt.Fprintf(buf, "\n// %s writes v to w as a single JSON document.\n", serialize)
	fmt.Fprintf(buf, "func %s(w io.Writer, v *%s) error {\n", serialize, td.Name)
	fmt.Fprintf(buf, "\treturn codec.Serialize(w, v, %s)\n", shapeVar)
	buf.WriteString("}\n")

	deserialize := f.DeserializePrefix + td.Name
	fmt.Fprintf(buf, "\n// %s reads a single JSON document from r into v.\n", deserialize)
	fmt.Fprintf(buf, "func %s(r io.Reader, v *%s) error {\n", deserialize, td.Name)
	fmt.Fprintf(buf, "\treturn codec.Deserialize(r, v, %s%s)\n", shapeVar, options)
	buf.WriteString("}\n")
}

func decodeOptions(f *models.File) string {
	var opts string
	if f.RequireAllFields {
		opts += ", codec.RequireAllFields()"
	}
	if f.DisallowTrailing {
		opts += ", codec.DisallowTrailing()"
	}
	return opts
}
