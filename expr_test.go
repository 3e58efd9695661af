package calcforge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic_Basics(t *testing.T) {
	a := newArithmeticEvaluator()

	tests := []struct {
		expr string
		want float64
	}{
		{"1.0 + 2.0", 3},
		{"2.0 * 3.0 + 4.0", 10},
		{"(2.0 + 3.0) * 4.0", 20},
		{"2.0 ** 10.0", 1024},
		{"sqrt(16.0)", 4},
		{"pow(2.0, 8.0)", 256},
		{"abs(-3.5)", 3.5},
		{"floor(2.9)", 2},
	}
	for _, tt := range tests {
		got, err := a.Evaluate(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.InDelta(t, tt.want, got, 1e-9, tt.expr)
	}
}

func TestArithmetic_Errors(t *testing.T) {
	a := newArithmeticEvaluator()

	_, err := a.Evaluate("")
	assert.Error(t, err)

	_, err = a.Evaluate("1.0 +")
	assert.Error(t, err)

	_, err = a.Evaluate("1.0 / 0.0")
	assert.Error(t, err, "non-finite results are errors")

	_, err = a.Evaluate("os.Getenv('PATH')")
	assert.Error(t, err, "identifiers outside the math namespace are rejected")
}

func TestArithmetic_CompiledProgramsAreCached(t *testing.T) {
	a := newArithmeticEvaluator()

	_, err := a.Evaluate("1.0 + 2.0")
	require.NoError(t, err)
	_, ok := a.cache.Load("1.0 + 2.0")
	assert.True(t, ok)
}

func TestFloatifyLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1/2", "1.0/2.0"},
		{"1 + 2", "1.0 + 2.0"},
		{"1.5 + 2", "1.5 + 2.0"},
		{"log2(8)", "log2(8.0)"},
		{"pow(2, 10)", "pow(2.0, 10.0)"},
		{"pi * 2", "pi * 2.0"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, floatifyLiterals(tt.in), tt.in)
	}
}
