package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole amount", input: "100", want: 10_000},
		{name: "two decimals", input: "1000.01", want: 100_001},
		{name: "one decimal", input: "50.5", want: 5_050},
		{name: "zero", input: "0", want: 0},
		{name: "zero with decimals", input: "0.00", want: 0},
		{name: "leading dot", input: ".99", want: 99},
		{name: "trailing dot", input: "12.", want: 1_200},
		{name: "negative", input: "-25.50", want: -2_550},
		{name: "whitespace trimmed", input: "  42.00 ", want: 4_200},
		{name: "threshold boundary", input: "10000.00", want: 1_000_000},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "three decimals", input: "1.005", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "garbage fraction", input: "1.x2", wantErr: true},
		{name: "double negative", input: "--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountToCents(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{99, "0.99"},
		{100, "1.00"},
		{100_001, "1000.01"},
		{-2_550, "-25.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCents(tt.cents))
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"0.00", "1.23", "5000.00", "-17.05"} {
		cents, err := ParseAmountToCents(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatCents(cents))
	}
}
