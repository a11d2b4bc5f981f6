package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "12.50", want: 1250},
		{in: "12.5", want: 1250},
		{in: "12", want: 1200},
		{in: "0.05", want: 5},
		{in: "0", want: 0},
		{in: " 7.00 ", want: 700},
		{in: "", wantErr: true},
		{in: "12.505", wantErr: true},
		{in: "12.", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Paracetamol 500mg", want: "paracetamol-500mg"},
		{in: "Cough & Cold Syrup", want: "cough-cold-syrup"},
		{in: "  Vitamin C  ", want: "vitamin-c"},
		{in: "B12 (Injectable)", want: "b12-injectable"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}

func TestNormalize(t *testing.T) {
	p, err := Normalize(Record{
		Name:                 "Amoxicillin 500mg",
		Category:             "Antibiotics",
		Brand:                "Pharma Ltd",
		Price:                "45.00",
		Stock:                "120",
		RequiresPrescription: "yes",
	})
	require.NoError(t, err)

	assert.Equal(t, "Amoxicillin 500mg", p.Name)
	assert.Equal(t, "amoxicillin-500mg", p.Slug)
	assert.Equal(t, int64(4500), p.Price)
	assert.Equal(t, int32(120), p.StockQuantity)
	assert.True(t, p.RequiresPrescription)
	assert.True(t, p.IsActive)
}

func TestNormalizeRejectsBadRows(t *testing.T) {
	_, err := Normalize(Record{Name: "", Price: "1.00"})
	assert.Error(t, err)

	_, err = Normalize(Record{Name: "X", Price: "one cedi"})
	assert.Error(t, err)

	_, err = Normalize(Record{Name: "X", Price: "1.00", Stock: "-5"})
	assert.Error(t, err)
}

func TestFromRow(t *testing.T) {
	rec, err := FromRow([]string{" Aspirin ", "Pain Relief", "Bayer", "desc", "75mg", "5.00", "10", "no"})
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", rec.Name)
	assert.Equal(t, "Pain Relief", rec.Category)

	_, err = FromRow([]string{"too", "short"})
	assert.Error(t, err)
}
