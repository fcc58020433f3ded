package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBy(t *testing.T) {
	type fix struct {
		code string
		desc string
	}
	fixes := []fix{{"A", "first"}, {"B", "b"}, {"A", "second"}}

	got := By(fixes, func(f fix) string { return f.code })
	assert.Equal(t, []fix{{"A", "first"}, {"B", "b"}}, got)

	assert.NotNil(t, By[fix, string](nil, func(f fix) string { return f.code }))
}

func TestValues(t *testing.T) {
	assert.Equal(t, []string{"FEE", "DEPOSIT"}, Values([]string{"FEE", "DEPOSIT", "FEE"}))
	assert.Equal(t, []int{3, 1, 2}, Values([]int{3, 1, 3, 2, 1}))
}

func TestTrimmedLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, []string{}},
		{"mixed case duplicates", []string{"  Lead_Paint ", "lead_paint", "FARE_Act"}, []string{"lead_paint", "fare_act"}},
		{"blank entries dropped", []string{"", "   ", "bedbug"}, []string{"bedbug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimmedLower(tt.input))
		})
	}
}
