package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func edges(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestValidateBinEdges(t *testing.T) {
	tests := []struct {
		name    string
		edges   []decimal.Decimal
		wantErr error
	}{
		{"default edges", DefaultBinEdges(), nil},
		{"single interval", edges("0", "100"), nil},
		{"decimal edges", edges("0", "12.5", "37.25", "100"), nil},
		{"repeated edge is still ascending", edges("0", "50", "50", "100"), nil},
		{"empty", nil, ErrTooFewBinEdges},
		{"one edge", edges("0"), ErrTooFewBinEdges},
		{"not ascending", edges("0", "40", "20", "100"), ErrBinsNotAscending},
		{"does not start at zero", edges("10", "20", "100"), ErrBinsBounds},
		{"does not end at hundred", edges("0", "20", "90"), ErrBinsBounds},
		{"edge above hundred", edges("0", "50", "101"), ErrBinEdgeOutOfRange},
		{"negative edge", edges("-1", "0", "100"), ErrBinEdgeOutOfRange},
		{"edge with extreme exponent", edges("0", "1e-40000000", "100"), ErrDecimalExponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBinEdges(tt.edges)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, ValidateThreshold(decimal.Zero))
	assert.NoError(t, ValidateThreshold(decimal.NewFromInt(100)))
	assert.NoError(t, ValidateThreshold(DefaultThreshold))
	assert.ErrorIs(t, ValidateThreshold(decimal.RequireFromString("100.5")), ErrThresholdOutOfRange)
	assert.ErrorIs(t, ValidateThreshold(decimal.NewFromInt(-1)), ErrThresholdOutOfRange)
	assert.ErrorIs(t, ValidateThreshold(decimal.RequireFromString("1e-40000000")), ErrDecimalExponent)
	assert.ErrorIs(t, ValidateThreshold(decimal.RequireFromString("1e40000000")), ErrDecimalExponent)
}

func TestDefaultBinEdges_ReturnsCopy(t *testing.T) {
	first := DefaultBinEdges()
	first[1] = decimal.NewFromInt(99)

	second := DefaultBinEdges()
	assert.Equal(t, "20", second[1].String())
	assert.Len(t, second, 6)
}

func TestDefaultLegend(t *testing.T) {
	legend := DefaultLegend()

	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, legend.BinEdges)
	assert.Equal(t, []string{"#f7fcf5", "#c7e9c0", "#74c476", "#31a354", "#006d2c"}, legend.Colors)
	assert.Equal(t, "Forest canopy cover (%)", legend.Title)
	assert.Equal(t, "Canopy cover percentage per grid cell.", legend.Description)

	legend.Colors[0] = "#000000"
	assert.Equal(t, "#f7fcf5", DefaultLegend().Colors[0], "legend must not be mutable through returned slices")
}
