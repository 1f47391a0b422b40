package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mcncl/jsonshape/codec"
	"github.com/mcncl/jsonshape/internal/analyzer"
	"github.com/mcncl/jsonshape/internal/config"
	"github.com/mcncl/jsonshape/internal/dynamic"
	"github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/formatter"
	"github.com/mcncl/jsonshape/internal/generator"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/internal/parser"
	"github.com/mcncl/jsonshape/internal/schema"
)

// stdio names standard input or output in path flags.
const stdio = "-"

// GenerateCmd writes one Go file per schema.
type GenerateCmd struct {
	Schemas  []string `arg:"" help:"Schema files (YAML or JSON)." type:"path"`
	Output   string   `help:"Path to output Go file, or - for stdout. Only valid with a single schema." short:"o" type:"path"`
	Package  string   `help:"Package name for generated code. Overrides the schema and config." short:"p"`
	NoFormat bool     `help:"Skip gofmt of the generated code." name:"no-format"`
	Workers  int      `help:"Number of schemas processed concurrently." default:"4"`
}

// Run generates code for every schema on a worker pool.
func (c *GenerateCmd) Run(ctx *Context) error {
	if c.Output != "" && len(c.Schemas) != 1 {
		return errors.NewInputError("-o can only be used with a single schema", nil)
	}
	if c.Package != "" && !config.IsIdentifier(c.Package) {
		return errors.NewInputError(fmt.Sprintf("package %q is not a valid Go identifier", c.Package), nil)
	}

	pool, err := ants.NewPool(max(c.Workers, 1), ants.WithPanicHandler(func(v any) {
		ctx.Log.Error("generate worker panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return errors.NewGenerateError("failed to start worker pool", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errs := make([]error, len(c.Schemas))
	for i, path := range c.Schemas {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			errs[i] = c.generateOne(ctx, path)
		})
		if err != nil {
			wg.Done()
			errs[i] = errors.NewGenerateError(fmt.Sprintf("failed to schedule %s", path), err)
		}
	}
	wg.Wait()

	failed := lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	for _, err := range failed[min(1, len(failed)):] {
		ctx.Log.Error("generate failed", zap.Error(err))
	}
	if len(failed) > 0 {
		return failed[0]
	}
	return nil
}

func (c *GenerateCmd) generateOne(ctx *Context, path string) error {
	log := ctx.Log.With(zap.String("schema", path))

	f, err := schema.Load(path, ctx.Config)
	if err != nil {
		return errors.NewSchemaError(fmt.Sprintf("failed to load %s", path), err)
	}
	if c.Package != "" {
		f.Package = c.Package
	}
	log.Debug("schema loaded", zap.String("package", f.Package), zap.Strings("types", schema.TypeNames(f)))

	code, err := generator.NewGeneratorWithConfig(ctx.Config).Generate(f)
	if err != nil {
		return err
	}
	if ctx.Config.Formatting.Enabled && !c.NoFormat {
		if code, err = formatter.NewFormatter().Format(code); err != nil {
			return err
		}
	}

	out := c.Output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ctx.Config.Output.Suffix
	}
	if err := writeOutput(ctx, out, []byte(code)); err != nil {
		return err
	}
	log.Info("generated", zap.String("output", out), zap.Int("types", len(f.Types)))
	return nil
}

// InferCmd derives a schema from a sample document.
type InferCmd struct {
	Input    string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output   string `help:"Path to output schema file. A .json extension writes JSON, anything else YAML." short:"o" type:"path"`
	RootName string `help:"Name for the root struct." short:"r"`
	Package  string `help:"Package name recorded in the schema." short:"p"`
	JSON     bool   `help:"Write the schema as JSON." name:"json"`
}

// Run parses the sample, infers its types and writes the schema.
func (c *InferCmd) Run(ctx *Context) error {
	in, err := openInput(ctx, c.Input)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	ir, err := parser.Parse(in)
	if err != nil {
		return err
	}

	cfg := *ctx.Config
	if c.Package != "" {
		cfg.Package = c.Package
	}
	rootName := lo.Ternary(c.RootName != "", c.RootName, cfg.RootName)

	f, err := analyzer.NewAnalyzerWithConfig(&cfg).Analyze(ir, rootName)
	if err != nil {
		return err
	}
	ctx.Log.Debug("schema inferred", zap.String("root", rootName), zap.Int("types", len(f.Types)))

	format := schema.FormatYAML
	if c.JSON || strings.EqualFold(filepath.Ext(c.Output), ".json") {
		format = schema.FormatJSON
	}
	data, err := schema.Encode(f, format, &cfg)
	if err != nil {
		return errors.NewOutputError("failed to encode schema", err)
	}
	return writeOutput(ctx, c.Output, data)
}

// CheckCmd validates a document against a schema type.
type CheckCmd struct {
	Schema string `help:"Schema file declaring the type." short:"s" required:"" type:"path"`
	Type   string `help:"Name of the type the document must match." short:"t" required:""`
	Input  string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Strict bool   `help:"Require every field and reject trailing content."`
}

// Run decodes the input into the type and reports the result.
func (c *CheckCmd) Run(ctx *Context) error {
	v, err := decodeInput(ctx, c.Schema, c.Type, c.Input, c.Strict)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(ctx.Stdout, "%s: valid %s\n", inputName(c.Input), v.Name)
	return err
}

// FmtCmd rewrites a document in the canonical form produced by the serializer.
type FmtCmd struct {
	Schema string `help:"Schema file declaring the type." short:"s" required:"" type:"path"`
	Type   string `help:"Name of the type the document must match." short:"t" required:""`
	Input  string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output string `help:"Path to output JSON file. If not specified, writes to stdout." short:"o" type:"path"`
	Strict bool   `help:"Require every field and reject trailing content."`
}

// Run decodes the input and serializes it again.
func (c *FmtCmd) Run(ctx *Context) error {
	v, err := decodeInput(ctx, c.Schema, c.Type, c.Input, c.Strict)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := v.Encode(&buf); err != nil {
		return errors.NewDecodeError(fmt.Sprintf("failed to serialize %s", v.Name), err)
	}
	return writeOutput(ctx, c.Output, buf.Bytes())
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run prints the version.
func (c *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintf(ctx.Stdout, "jsonshape version %s\n", Version)
	return err
}

// decodeInput loads the schema, builds the named type and decodes the input into it.
func decodeInput(ctx *Context, schemaPath, typeName, input string, strict bool) (*dynamic.Value, error) {
	f, err := schema.Load(schemaPath, ctx.Config)
	if err != nil {
		return nil, errors.NewSchemaError(fmt.Sprintf("failed to load %s", schemaPath), err)
	}
	v, err := newValue(f, typeName)
	if err != nil {
		return nil, err
	}

	in, err := openInput(ctx, input)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	var opts []codec.Option
	if strict {
		opts = append(opts, codec.RequireAllFields(), codec.DisallowTrailing())
	}
	if err := v.Decode(in, opts...); err != nil {
		ctx.Log.Debug("decode failed", zap.String("type", typeName), zap.Error(err))
		return nil, errors.NewDecodeError(fmt.Sprintf("%s is not a valid %s", inputName(input), typeName), err)
	}
	return v, nil
}

func newValue(f *models.File, typeName string) (*dynamic.Value, error) {
	if _, ok := f.Lookup(typeName); !ok {
		return nil, errors.NewSchemaError(
			fmt.Sprintf("type %q is not declared; available types: %s", typeName, strings.Join(schema.TypeNames(f), ", ")),
			errors.ErrUnknownType)
	}
	types, err := dynamic.Build(f)
	if err != nil {
		return nil, errors.NewSchemaError("failed to build types", err)
	}
	v, err := types.New(typeName)
	if err != nil {
		return nil, errors.NewSchemaError(fmt.Sprintf("failed to build type %s", typeName), err)
	}
	return v, nil
}

// openInput opens path, or standard input when path is empty or "-".
func openInput(ctx *Context, path string) (io.ReadCloser, error) {
	if path != "" && path != stdio {
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
			}
			return nil, errors.NewInputError(fmt.Sprintf("failed to open file '%s'", path), err)
		}
		return file, nil
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.NewInputError("failed to access stdin", err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}
	return io.NopCloser(ctx.Stdin), nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(ctx *Context, path string, data []byte) error {
	if path == "" || path == stdio {
		if _, err := ctx.Stdout.Write(data); err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	return nil
}

func inputName(path string) string {
	if path == "" || path == stdio {
		return "stdin"
	}
	return path
}
