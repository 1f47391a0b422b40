package e2e_test

import (
	"fmt"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

// generateNestedJSON creates a deeply nested JSON structure for benchmarking
func generateNestedJSON(depth int, width int) map[string]interface{} {
	if depth <= 0 {
		return map[string]interface{}{
			"leaf_value": "data",
			"count":      depth + width,
			"enabled":    width%2 == 0,
			"position":   []float64{1.5, 2.5, 3.5},
		}
	}

	result := make(map[string]interface{})
	for i := 0; i < width; i++ {
		result[fmt.Sprintf("nested_%d_%d", depth, i)] = generateNestedJSON(depth-1, width)
	}
	return result
}

// generateWideJSON creates a JSON object with many fields at the same level
func generateWideJSON(fieldCount int) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < fieldCount; i++ {
		switch i % 5 {
		case 0:
			result[fmt.Sprintf("string_field_%d", i)] = fmt.Sprintf("value_%d", i)
		case 1:
			result[fmt.Sprintf("int_field_%d", i)] = i
		case 2:
			result[fmt.Sprintf("bool_field_%d", i)] = i%2 == 0
		case 3:
			result[fmt.Sprintf("float_field_%d", i)] = float64(i) + 0.5
		case 4:
			result[fmt.Sprintf("object_field_%d", i)] = map[string]interface{}{
				"id":    i,
				"name":  fmt.Sprintf("Object %d", i),
				"value": i * 10,
			}
		}
	}

	return result
}

func benchmarkInfer(b *testing.B, doc interface{}) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(doc)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, stderr, err := jsonshape(b, string(data), "infer", "-r", "Bench")
		if err != nil {
			b.Fatalf("infer failed: %v\n%s", err, stderr)
		}
	}
}

// BenchmarkDeepNesting benchmarks schema inference for deeply nested documents
func BenchmarkDeepNesting(b *testing.B) {
	if testing.Short() {
		b.Skip("skipping benchmark in short mode")
	}

	for _, depth := range []int{2, 4, 6} {
		b.Run(fmt.Sprintf("depth_%d", depth), func(b *testing.B) {
			benchmarkInfer(b, generateNestedJSON(depth, 2))
		})
	}
}

// BenchmarkWideStructures benchmarks schema inference for objects with many fields
func BenchmarkWideStructures(b *testing.B) {
	if testing.Short() {
		b.Skip("skipping benchmark in short mode")
	}

	for _, width := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("fields_%d", width), func(b *testing.B) {
			benchmarkInfer(b, generateWideJSON(width))
		})
	}
}
