package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mcncl/jsonshape/internal/config"
	"github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/internal/schema"
)

// DefaultRootName is the default name for the root struct if not specified.
const DefaultRootName = config.DefaultRootName

// Analyzer infers a schema from a sample document. Objects become struct
// declarations with fields in document order; arrays become fixed-size arrays
// of the sample's length.
type Analyzer struct {
	// structNames tracks generated struct names to avoid collisions
	structNames map[string]int
	file        *models.File
	config      *config.Config
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(config.NewConfig())
}

// NewAnalyzerWithConfig creates a new Analyzer instance with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{
		structNames: make(map[string]int),
		config:      cfg,
	}
}

// Analyze infers struct declarations for the document's root object. The result
// is validated, so every field carries its resolved type.
func (a *Analyzer) Analyze(ir models.IntermediateRepresentation, rootStructName string) (*models.File, error) {
	if ir.Root == nil {
		return nil, errors.NewAnalysisError("no document to analyze", errors.ErrEmptyInput)
	}
	if ir.Root.Kind != models.Object {
		return nil, errors.NewAnalysisError(
			fmt.Sprintf("document root must be an object, got %s", ir.Root.Kind), nil)
	}
	if rootStructName == "" {
		rootStructName = DefaultRootName
	}

	a.structNames = make(map[string]int)
	a.file = &models.File{
		Package:           a.config.Package,
		SerializePrefix:   a.config.Shims.SerializePrefix,
		DeserializePrefix: a.config.Shims.DeserializePrefix,
		RequireAllFields:  a.config.Decode.RequireAllFields,
		DisallowTrailing:  a.config.Decode.DisallowTrailing,
	}

	rootName := a.generateUniqueStructName(config.GoName(rootStructName, a.config.Naming.Initialisms))
	root, err := merge([]*models.JSONValue{ir.Root}, "")
	if err != nil {
		return nil, err
	}
	if _, err := a.analyzeObject(root, rootName, ""); err != nil {
		return nil, err
	}

	if err := schema.Validate(a.file, a.config); err != nil {
		return nil, errors.NewAnalysisError("inferred schema is invalid", err)
	}
	return a.file, nil
}

// analyzeObject declares a struct for a merged object and returns its name. An
// identical declaration made earlier is reused.
func (a *Analyzer) analyzeObject(obj *models.JSONValue, structName, path string) (string, error) {
	decl := models.TypeDecl{Fields: make([]models.FieldDecl, 0, len(obj.Members))}

	for _, m := range obj.Members {
		fieldPath := joinPath(path, m.Key)
		field := models.FieldDecl{Name: m.Key}

		if mapping, found := a.config.FindTypeMapping(m.Key); found {
			field.Type = mapping.Type
			decl.Fields = append(decl.Fields, field)
			continue
		}

		typ, comment, err := a.analyzeNode(m.Value, a.config.GetFieldName(m.Key), fieldPath)
		if err != nil {
			return "", err
		}
		field.Type = typ
		field.Comment = comment
		decl.Fields = append(decl.Fields, field)
	}

	if existing, ok := a.findEquivalent(decl); ok {
		return existing, nil
	}
	if structName == "" {
		structName = "Object"
	}
	decl.Name = structName
	a.file.Types = append(a.file.Types, decl)
	return structName, nil
}

// analyzeNode returns the type expression for a merged value.
func (a *Analyzer) analyzeNode(v *models.JSONValue, suggestedName, path string) (string, string, error) {
	switch v.Kind {
	case models.Null:
		return "string", "always null in the sample; type assumed", nil
	case models.Bool:
		return "bool", "", nil
	case models.String:
		return "string", "", nil
	case models.Number:
		if v.IsInteger() {
			if !fitsInt64(v.Text) {
				return "uint64", "", nil
			}
			return a.config.Infer.IntegerType, "", nil
		}
		return a.config.Infer.FloatType, "", nil
	case models.Object:
		name, err := a.analyzeObject(v, a.generateUniqueStructName(suggestedName), path)
		return name, "", err
	case models.ArrayValue:
		n := len(v.Items)
		if n == 0 {
			return "[0]string", "empty in the sample; element type assumed", nil
		}
		elemName := suggestedName
		if a.config.Infer.SingularizeNames {
			elemName = singularize(elemName)
		}
		elem, comment, err := a.analyzeNode(v.Items[0], elemName, path+"[]")
		if err != nil {
			return "", "", err
		}
		return "[" + strconv.Itoa(n) + "]" + elem, comment, nil
	}
	return "", "", errors.NewAnalysisError(fmt.Sprintf("unexpected JSON value kind %s at %s", v.Kind, path), nil)
}

// findEquivalent returns the name of an already declared struct with the same fields.
func (a *Analyzer) findEquivalent(decl models.TypeDecl) (string, bool) {
	for _, existing := range a.file.Types {
		if areTypeDeclsEquivalent(existing, decl) {
			return existing.Name, true
		}
	}
	return "", false
}

// generateUniqueStructName ensures that the struct name is unique by appending a number if needed.
func (a *Analyzer) generateUniqueStructName(baseName string) string {
	name := baseName
	count := a.structNames[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	a.structNames[baseName] = count + 1
	return name
}

func areTypeDeclsEquivalent(d1, d2 models.TypeDecl) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Name != d2.Fields[i].Name || d1.Fields[i].Type != d2.Fields[i].Type {
			return false
		}
	}
	return true
}

// merge folds sibling values that must share one Go type (all elements of an array, or
// the same key across those elements) into a single representative value. Nulls give way
// to any other kind, integers widen to floats, objects take the union of their keys in
// first-seen order, and arrays must agree on length.
func merge(values []*models.JSONValue, path string) (*models.JSONValue, error) {
	present := lo.Filter(values, func(v *models.JSONValue, _ int) bool { return v.Kind != models.Null })
	if len(present) == 0 {
		return values[0], nil
	}

	first := present[0]
	for _, v := range present[1:] {
		if v.Kind != first.Kind {
			return nil, errors.NewAnalysisError(
				fmt.Sprintf("%s mixes %s and %s values", describePath(path), first.Kind, v.Kind), nil)
		}
	}

	switch first.Kind {
	case models.Number:
		if frac, ok := lo.Find(present, func(v *models.JSONValue) bool { return !v.IsInteger() }); ok {
			return frac, nil
		}
		// an integer beyond int64 decides the type
		if big, ok := lo.Find(present, func(v *models.JSONValue) bool { return !fitsInt64(v.Text) }); ok {
			return big, nil
		}
		return first, nil

	case models.Object:
		var order []string
		byKey := map[string][]*models.JSONValue{}
		for _, obj := range present {
			for _, m := range obj.Members {
				if _, seen := byKey[m.Key]; !seen {
					order = append(order, m.Key)
				}
				byKey[m.Key] = append(byKey[m.Key], m.Value)
			}
		}
		merged := &models.JSONValue{Kind: models.Object, Offset: first.Offset}
		for _, key := range order {
			value, err := merge(byKey[key], joinPath(path, key))
			if err != nil {
				return nil, err
			}
			merged.Members = append(merged.Members, models.Member{Key: key, Value: value})
		}
		return merged, nil

	case models.ArrayValue:
		n := len(first.Items)
		var items []*models.JSONValue
		for _, arr := range present {
			if len(arr.Items) != n {
				return nil, errors.NewAnalysisError(
					fmt.Sprintf("%s holds arrays of different lengths (%d and %d); only fixed-size arrays are supported",
						describePath(path), n, len(arr.Items)), nil)
			}
			items = append(items, arr.Items...)
		}
		merged := &models.JSONValue{Kind: models.ArrayValue, Offset: first.Offset}
		if n == 0 {
			return merged, nil
		}
		elem, err := merge(items, path+"[]")
		if err != nil {
			return nil, err
		}
		merged.Items = lo.Times(n, func(int) *models.JSONValue { return elem })
		return merged, nil
	}

	return first, nil
}

func fitsInt64(text string) bool {
	_, err := strconv.ParseInt(text, 10, 64)
	return err == nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func describePath(path string) string {
	if path == "" {
		return "the document root"
	}
	return "field " + path
}

var knownSingulars = map[string]string{
	"series":    "series",
	"status":    "status",
	"analysis":  "analysis",
	"species":   "species",
	"news":      "news",
	"children":  "child",
	"people":    "person",
	"data":      "data",
	"media":     "media",
	"addresses": "address",
	"matrix":    "matrix",
	"vertices":  "vertex",
	"indices":   "index",
}

// singularize attempts to convert a plural name to a singular one.
func singularize(plural string) string {
	if singular, ok := knownSingulars[strings.ToLower(plural)]; ok {
		if plural != "" && strings.ToUpper(plural[:1]) == plural[:1] {
			return strings.ToUpper(singular[:1]) + singular[1:]
		}
		return singular
	}

	lower := strings.ToLower(plural)
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return plural[:len(plural)-3] + "y"
	case strings.HasSuffix(lower, "ss"), strings.HasSuffix(lower, "us"), strings.HasSuffix(lower, "is"):
		return plural
	case strings.HasSuffix(lower, "xes") || strings.HasSuffix(lower, "ches") || strings.HasSuffix(lower, "shes"):
		return plural[:len(plural)-2]
	case strings.HasSuffix(lower, "s") && len(lower) > 1:
		return plural[:len(plural)-1]
	}
	return plural
}
