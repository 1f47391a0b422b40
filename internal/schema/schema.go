// Package schema loads and validates schema files describing fixed-shape structs
package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsonshape/internal/config"
	apperrors "github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/models"
)

// Format is the encoding of a schema file.
type Format int

const (
	// FormatAuto picks JSON when the document starts with '{', YAML otherwise.
	FormatAuto Format = iota
	FormatYAML
	FormatJSON
)

// strictJSON rejects unknown keys so typos in schema files surface early.
var strictJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// scalars maps accepted scalar spellings to Go types.
var scalars = map[string]string{
	"int":     "int",
	"int8":    "int8",
	"int16":   "int16",
	"int32":   "int32",
	"int64":   "int64",
	"uint":    "uint",
	"uint8":   "uint8",
	"uint16":  "uint16",
	"uint32":  "uint32",
	"uint64":  "uint64",
	"float32": "float32",
	"float64": "float64",
	"bool":    "bool",
	"string":  "string",
	"byte":    "uint8",
	"float":   "float32",
	"double":  "float64",
	"integer": "int64",
	"number":  "float64",
	"boolean": "bool",
}

// ParseFile reads a schema file. The extension selects the decoder; unknown
// extensions are sniffed.
func ParseFile(path string) (*models.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(apperrors.ErrFileNotFound, "schema %s", path)
		}
		return nil, errors.Wrap(err, "failed to read schema file")
	}

	format := FormatAuto
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yml", ".yaml":
		format = FormatYAML
	}

	f, err := ParseBytes(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	f.Source = path
	return f, nil
}

// ParseBytes decodes a schema document without validating it.
func ParseBytes(data []byte, format Format) (*models.File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, apperrors.ErrFileEmpty
	}
	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var f models.File
	switch format {
	case FormatJSON:
		if err := strictJSON.Unmarshal(trimmed, &f); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to parse JSON schema"), apperrors.ErrInvalidSchema)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(trimmed))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to parse YAML schema"), apperrors.ErrInvalidSchema)
		}
	}
	return &f, nil
}

// ParseString decodes a schema document given as a string.
func ParseString(s string) (*models.File, error) {
	return ParseBytes([]byte(s), FormatAuto)
}

// Load parses and validates a schema file in one step.
func Load(path string, cfg *config.Config) (*models.File, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(f, cfg); err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return f, nil
}

// Encode renders f as a schema document. Go names that the naming rules in cfg
// would derive anyway are left out.
func Encode(f *models.File, format Format, cfg *config.Config) ([]byte, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	out := *f
	out.Types = lo.Map(f.Types, func(td models.TypeDecl, _ int) models.TypeDecl {
		td.Fields = lo.Map(td.Fields, func(fd models.FieldDecl, _ int) models.FieldDecl {
			if fd.GoName == cfg.GetFieldName(fd.Name) {
				fd.GoName = ""
			}
			return fd
		})
		return td
	})

	if format == FormatJSON {
		data, err := strictJSON.MarshalIndent(&out, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode JSON schema")
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML schema")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML schema")
	}
	return buf.Bytes(), nil
}

// ParseType parses a type expression such as "int32", "Inner" or "[2][3]uint16".
// Names that are not scalars come back as Named references; Validate checks them.
func ParseType(expr string) (*models.TypeRef, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, invalid("empty type expression")
	}

	if s[0] == '[' {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, invalid("unterminated array length in %q", expr)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[1:end]))
		if err != nil {
			return nil, invalid("bad array length in %q", expr)
		}
		if n < 0 {
			return nil, invalid("negative array length in %q", expr)
		}
		elem, err := ParseType(s[end+1:])
		if err != nil {
			return nil, err
		}
		return &models.TypeRef{Kind: models.Array, Len: n, Elem: elem}, nil
	}

	if goType, ok := scalars[s]; ok {
		return &models.TypeRef{Kind: models.Scalar, Name: goType}, nil
	}
	if !config.IsIdentifier(s) {
		return nil, invalid("%q is not a type name", expr)
	}
	return &models.TypeRef{Kind: models.Named, Name: s}, nil
}

// Validate resolves every field's type, fills in missing Go names and settings
// from cfg, and checks that the declarations describe a finite set of fixed-shape
// structs. A nil cfg uses the defaults.
func Validate(f *models.File, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if f.Package == "" {
		f.Package = cfg.Package
	}
	if f.SerializePrefix == "" {
		f.SerializePrefix = cfg.Shims.SerializePrefix
	}
	if f.DeserializePrefix == "" {
		f.DeserializePrefix = cfg.Shims.DeserializePrefix
	}
	f.RequireAllFields = f.RequireAllFields || cfg.Decode.RequireAllFields
	f.DisallowTrailing = f.DisallowTrailing || cfg.Decode.DisallowTrailing

	if !config.IsIdentifier(f.Package) {
		return invalid("package %q is not a valid Go identifier", f.Package)
	}
	for _, prefix := range []string{f.SerializePrefix, f.DeserializePrefix} {
		if !config.IsIdentifier(prefix) {
			return invalid("shim prefix %q is not a valid Go identifier", prefix)
		}
	}
	if len(f.Types) == 0 {
		return invalid("no types declared")
	}

	for _, td := range f.Types {
		if !config.IsIdentifier(td.Name) {
			return invalid("type name %q is not a valid Go identifier", td.Name)
		}
		if _, ok := scalars[td.Name]; ok {
			return invalid("type name %q shadows a scalar type", td.Name)
		}
	}
	if dups := lo.FindDuplicatesBy(f.Types, func(td models.TypeDecl) string { return td.Name }); len(dups) > 0 {
		return invalid("type %s declared more than once", dups[0].Name)
	}
	if err := checkGeneratedNames(f); err != nil {
		return err
	}

	for i := range f.Types {
		if err := resolveFields(f, &f.Types[i], cfg); err != nil {
			return err
		}
	}
	if err := checkCycles(f); err != nil {
		return err
	}
	return checkSizes(f)
}

// reservedNames are package-scope identifiers that generated files refer to.
var reservedNames = map[string]bool{
	"_":     true,
	"io":    true,
	"codec": true,
	"shape": true,
	"error": true,
	"init":  true,
	"main":  true,
}

// checkGeneratedNames rejects schemas whose generated declarations would collide.
func checkGeneratedNames(f *models.File) error {
	if f.SerializePrefix == f.DeserializePrefix {
		return invalid("serialize and deserialize prefixes are both %q", f.SerializePrefix)
	}
	owner := make(map[string]string, 4*len(f.Types))
	for _, td := range f.Types {
		if reservedNames[td.Name] {
			return invalid("type name %q is reserved in generated code", td.Name)
		}
		for _, name := range GeneratedNames(f, td.Name) {
			if prev, ok := owner[name]; ok {
				return invalid("types %s and %s both generate the identifier %s", prev, td.Name, name)
			}
			owner[name] = td.Name
		}
	}
	return nil
}

// GeneratedNames lists the package-level identifiers declared for one type: the type
// itself, its descriptor variable and its two shims.
func GeneratedNames(f *models.File, typeName string) []string {
	return []string{
		typeName,
		ShapeVar(typeName),
		f.SerializePrefix + typeName,
		f.DeserializePrefix + typeName,
	}
}

// ShapeVar names the package-level descriptor variable of a generated type.
func ShapeVar(typeName string) string {
	return strcase.ToLowerCamel(typeName) + "Shape"
}

// StructTag renders the struct tag carrying a field's JSON name. The name "-" needs a
// trailing comma so it is not read as "skip this field".
func StructTag(name string) string {
	if name == "-" {
		name = "-,"
	}
	return "json:" + strconv.Quote(name)
}

// MaxValues bounds the number of scalar values a single declared type may hold.
const MaxValues = 1 << 20

// checkSizes rejects types whose arrays would hold more than MaxValues values.
func checkSizes(f *models.File) error {
	counts := make(map[string]int, len(f.Types))
	for _, td := range f.Types {
		if _, err := countValues(f, td.Name, counts); err != nil {
			return err
		}
	}
	return nil
}

func countValues(f *models.File, name string, counts map[string]int) (int, error) {
	if n, ok := counts[name]; ok {
		return n, nil
	}
	td, _ := f.Lookup(name)
	total := 0
	for _, fd := range td.Fields {
		n, err := refValues(f, fd.Ref, counts)
		if err != nil {
			return 0, err
		}
		if n > MaxValues-total {
			return 0, invalid("type %s holds more than %d values", name, MaxValues)
		}
		total += n
	}
	counts[name] = total
	return total, nil
}

func refValues(f *models.File, ref *models.TypeRef, counts map[string]int) (int, error) {
	switch ref.Kind {
	case models.Named:
		return countValues(f, ref.Name, counts)
	case models.Array:
		n, err := refValues(f, ref.Elem, counts)
		if err != nil {
			return 0, err
		}
		// empty structs still cost one value per slot when written
		n = max(n, 1)
		if ref.Len > MaxValues/n {
			return 0, invalid("%s holds more than %d values", ref, MaxValues)
		}
		return ref.Len * n, nil
	}
	return 1, nil
}

func resolveFields(f *models.File, td *models.TypeDecl, cfg *config.Config) error {
	for i := range td.Fields {
		fd := &td.Fields[i]
		if fd.Name == "" {
			return invalid("type %s: field %d has no name", td.Name, i)
		}
		if strings.ContainsAny(fd.Name, ",`") {
			return invalid("type %s: field name %q may not contain ',' or '`'", td.Name, fd.Name)
		}
		if fd.GoName == "" {
			fd.GoName = cfg.GetFieldName(fd.Name)
		}
		if !config.IsIdentifier(fd.GoName) || !isExported(fd.GoName) {
			return invalid("type %s: field %s: Go name %q is not an exported identifier", td.Name, fd.Name, fd.GoName)
		}
		if fd.Len < 0 {
			return invalid("type %s: field %s: negative len %d", td.Name, fd.Name, fd.Len)
		}

		ref, err := ParseType(fd.Type)
		if err != nil {
			return errors.Wrapf(err, "type %s: field %s", td.Name, fd.Name)
		}
		if base := ref.Base(); base.Kind == models.Named {
			if _, ok := f.Lookup(base.Name); !ok {
				return errors.Wrapf(apperrors.ErrUnknownType, "type %s: field %s references %q", td.Name, fd.Name, base.Name)
			}
		}
		if fd.Len > 0 {
			ref = &models.TypeRef{Kind: models.Array, Len: fd.Len, Elem: ref}
		}
		fd.Ref = ref
	}

	if dups := lo.FindDuplicatesBy(td.Fields, func(fd models.FieldDecl) string { return fd.Name }); len(dups) > 0 {
		return invalid("type %s: field %s declared more than once", td.Name, dups[0].Name)
	}
	if dups := lo.FindDuplicatesBy(td.Fields, func(fd models.FieldDecl) string { return fd.GoName }); len(dups) > 0 {
		return invalid("type %s: Go field name %s used more than once", td.Name, dups[0].GoName)
	}
	return nil
}

// checkCycles rejects types that contain themselves by value.
func checkCycles(f *models.File) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(f.Types))

	var visit func(name string, trail []string) error
	visit = func(name string, trail []string) error {
		switch state[name] {
		case visiting:
			return invalid("recursive type %s", strings.Join(append(trail, name), " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		td, _ := f.Lookup(name)
		for _, fd := range td.Fields {
			if base := fd.Ref.Base(); base.Kind == models.Named {
				if err := visit(base.Name, append(trail, name)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}

	for _, td := range f.Types {
		if err := visit(td.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Dependencies returns the declared types reachable from name, dependencies first,
// ending with name itself.
func Dependencies(f *models.File, name string) []string {
	var order []string
	seen := map[string]bool{}
	var walk func(string)
	walk = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		td, ok := f.Lookup(n)
		if !ok {
			return
		}
		for _, fd := range td.Fields {
			if fd.Ref == nil {
				continue
			}
			if base := fd.Ref.Base(); base.Kind == models.Named {
				walk(base.Name)
			}
		}
		order = append(order, n)
	}
	walk(name)
	return order
}

// TypeNames lists the declared type names in declaration order.
func TypeNames(f *models.File) []string {
	return lo.Map(f.Types, func(td models.TypeDecl, _ int) string { return td.Name })
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func invalid(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), apperrors.ErrInvalidSchema)
}
