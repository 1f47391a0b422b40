package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "main", cfg.Package)
	assert.Equal(t, "Root", cfg.RootName)
	assert.True(t, cfg.Formatting.Enabled)
	assert.True(t, cfg.Shims.Enabled)
	assert.Equal(t, "Serialize", cfg.Shims.SerializePrefix)
	assert.Equal(t, "Deserialize", cfg.Shims.DeserializePrefix)
	assert.False(t, cfg.Decode.RequireAllFields)
	assert.False(t, cfg.Decode.DisallowTrailing)
	assert.Equal(t, "int64", cfg.Infer.IntegerType)
	assert.Equal(t, "float64", cfg.Infer.FloatType)
	assert.Equal(t, "_gen.go", cfg.Output.Suffix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromYAML(t *testing.T) {
	yamlContent := `
package: "state"
root_name: "DummyStruct"
formatting:
  enabled: false
naming:
  field_mappings:
    "array_of_inner": "Inners"
shims:
  serialize_prefix: "DUMMY_SERIALIZE_"
  deserialize_prefix: "DUMMY_DESERIALIZE_"
decode:
  require_all_fields: true
infer:
  integer_type: "int32"
  float_type: "float32"
  mappings:
    - pattern: ".*_count$"
      type: "uint16"
log:
  level: "warn"
  file: "jsonshape.log"
  max_size_mb: 5
`
	path := writeFile(t, t.TempDir(), "config.yml", yamlContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "state", cfg.Package)
	assert.Equal(t, "DummyStruct", cfg.RootName)
	assert.False(t, cfg.Formatting.Enabled)
	assert.Equal(t, "Inners", cfg.Naming.FieldMappings["array_of_inner"])
	assert.Equal(t, "DUMMY_SERIALIZE_", cfg.Shims.SerializePrefix)
	assert.Equal(t, "DUMMY_DESERIALIZE_", cfg.Shims.DeserializePrefix)
	assert.True(t, cfg.Shims.Enabled, "unset values keep their defaults")
	assert.True(t, cfg.Decode.RequireAllFields)
	assert.Equal(t, "int32", cfg.Infer.IntegerType)
	assert.Equal(t, "float32", cfg.Infer.FloatType)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "jsonshape.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups)

	require.Len(t, cfg.Infer.Mappings, 1)
	mapping, found := cfg.FindTypeMapping("item_count")
	require.True(t, found)
	assert.Equal(t, "uint16", mapping.Type)
}

func TestConfig_LoadNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "invalid.yml", "package: \"models\"\ninvalid_yaml: [unclosed array\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_LoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{name: "package", content: `package: "my-pkg"`, message: "not a valid Go identifier"},
		{name: "prefix", content: "shims:\n  serialize_prefix: \"to json\"", message: "shim prefix"},
		{name: "integer type", content: "infer:\n  integer_type: float64", message: "not an integer type"},
		{name: "float type", content: "infer:\n  float_type: int", message: "not a float type"},
		{name: "pattern", content: "infer:\n  mappings:\n    - pattern: \"[oops\"\n      type: int8", message: "invalid type mapping pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestConfig_FindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "project", "subdir")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	writeFile(t, filepath.Join(tmpDir, "project"), ".jsonshape.yml", `package: "found"`)

	foundPath := FindConfigFile(nestedDir)
	require.NotEmpty(t, foundPath, "Should find config file")
	assert.Equal(t, filepath.Join(tmpDir, "project", ".jsonshape.yml"), foundPath)
}

func TestConfig_FindConfigFileFromWorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "jsonshape.yaml", `package: "cwd"`)

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	foundPath := FindConfigFile("")
	require.NotEmpty(t, foundPath)
	content, err := os.ReadFile(foundPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "cwd")
}

func TestConfig_FindConfigFileNotFound(t *testing.T) {
	assert.Empty(t, FindConfigFile(t.TempDir()))
}

func TestTypeMapping_MatchesPattern(t *testing.T) {
	mapping := TypeMapping{
		Pattern: ".*_id$",
		Type:    "uint32",
	}

	assert.True(t, mapping.MatchesField("user_id"))
	assert.True(t, mapping.MatchesField("product_id"))
	assert.False(t, mapping.MatchesField("username"))
	assert.False(t, mapping.MatchesField("id_number"))
}

func TestTypeMapping_InvalidPattern(t *testing.T) {
	mapping := TypeMapping{
		Pattern: "[invalid regex",
		Type:    "int64",
	}

	assert.False(t, mapping.MatchesField("user_id"))
}

func TestConfig_GetFieldName(t *testing.T) {
	cfg := NewConfig()
	cfg.Naming.FieldMappings["array_of_inner"] = "Inners"

	assert.Equal(t, "Inners", cfg.GetFieldName("array_of_inner"))
	assert.Equal(t, "SomeInt", cfg.GetFieldName("some_int"))
	assert.Equal(t, "UserID", cfg.GetFieldName("user_id"))
	assert.Equal(t, "APIURL", cfg.GetFieldName("api_url"))
	assert.Equal(t, "Identity", cfg.GetFieldName("identity"))
	assert.Equal(t, "F3DModel", cfg.GetFieldName("3d_model"))
}

func TestGoName(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"value", "Value"},
		{"some_int", "SomeInt"},
		{"someInt", "SomeInt"},
		{"some-int", "SomeInt"},
		{"SomeInt", "SomeInt"},
		{"_", "Field"},
		{"", "Field"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, GoName(tt.key, nil))
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("state"))
	assert.True(t, IsIdentifier("DUMMY_SERIALIZE_"))
	assert.True(t, IsIdentifier("_x9"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("9x"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier("a b"))
	assert.False(t, IsIdentifier("type"))
	assert.False(t, IsIdentifier("func"))
	assert.True(t, IsIdentifier("Type"))
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	configYAML := `
package: "models"
root_name: "Response"
formatting:
  enabled: true
`
	path := writeFile(t, t.TempDir(), "precedence.yml", configYAML)

	format := false
	cfg, err := LoadConfigWithCLI(path, Overrides{
		Package:  "api",
		RootName: "APIResult",
		Format:   &format,
		Debug:    true,
		LogFile:  "/tmp/jsonshape.log",
	})
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Package)
	assert.Equal(t, "APIResult", cfg.RootName)
	assert.False(t, cfg.Formatting.Enabled)
	assert.True(t, cfg.Dev.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/jsonshape.log", cfg.Log.File)
}

func TestLoadConfigWithPrecedence_NoOverrides(t *testing.T) {
	configYAML := `
package: "models"
formatting:
  enabled: false
`
	path := writeFile(t, t.TempDir(), "precedence.yml", configYAML)

	cfg, err := LoadConfigWithCLI(path, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "models", cfg.Package)
	assert.False(t, cfg.Formatting.Enabled)
	assert.Equal(t, "Root", cfg.RootName)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigWithCLI_InvalidOverride(t *testing.T) {
	_, err := LoadConfigWithCLI(writeFile(t, t.TempDir(), "c.yml", "package: ok"), Overrides{Package: "not ok"})
	assert.Error(t, err)
}
