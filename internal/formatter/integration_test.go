package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonshape/internal/analyzer"
	"github.com/mcncl/jsonshape/internal/generator"
	"github.com/mcncl/jsonshape/internal/parser"
	"github.com/mcncl/jsonshape/internal/schema"
)

func TestIntegration_ParserAnalyzerGeneratorFormatter(t *testing.T) {
	// Parser -> Analyzer -> Generator -> Formatter
	jsonInput := `{
		"user_id": 123,
		"username": "johndoe",
		"is_active": true,
		"profile": {
			"full_name": "John Doe",
			"email": "john.doe@example.com"
		}
	}`

	ir, err := parser.ParseString(jsonInput)
	require.NoError(t, err)

	file, err := analyzer.NewAnalyzer().Analyze(ir, "User")
	require.NoError(t, err)

	generatedCode, err := generator.NewGenerator().Generate(file)
	require.NoError(t, err)

	formattedCode, err := NewFormatter().Format(generatedCode)
	require.NoError(t, err)

	assert.Equal(t, generatedCode, formattedCode, "generator output is already formatted")
}

func TestIntegration_SchemaWithComments(t *testing.T) {
	f, err := schema.ParseString(`
package: shapes
types:
  - name: Circle
    comment: Circle is a disc in the plane.
    fields:
      - {name: radius, type: float64, comment: in metres}
      - {name: center, type: "[2]float64"}
`)
	require.NoError(t, err)
	require.NoError(t, schema.Validate(f, nil))

	generatedCode, err := generator.NewGenerator().Generate(f)
	require.NoError(t, err)

	formattedCode, err := NewFormatter().Format(generatedCode)
	require.NoError(t, err)

	assert.Contains(t, formattedCode, "package shapes\n")
	assert.Contains(t, formattedCode, "// Circle is a disc in the plane.\ntype Circle struct {\n")
	assert.Contains(t, formattedCode, "\t// in metres\n")
	assert.Contains(t, formattedCode, "func DeserializeCircle(r io.Reader, v *Circle) error {")

	again, err := NewFormatter().Format(formattedCode)
	require.NoError(t, err)
	assert.Equal(t, formattedCode, again)
}
