// Package importer normalizes spreadsheet catalog rows into products.
// Whatever shape the source sheet has, only the canonical Product
// crosses this boundary.
package importer

import (
	"fmt"
	"strconv"
	"strings"

	"epharma/ent"
)

// Record is one row of a catalog spreadsheet, columns in order:
// name, category, brand, description, dosage, price, stock,
// requires_prescription. Price is a decimal amount in major units.
type Record struct {
	Name                 string
	Category             string
	Brand                string
	Description          string
	Dosage               string
	Price                string
	Stock                string
	RequiresPrescription string
}

// FieldsPerRecord is the column count a catalog sheet must have.
const FieldsPerRecord = 8

func FromRow(row []string) (Record, error) {
	if len(row) != FieldsPerRecord {
		return Record{}, fmt.Errorf("want %d columns, got %d", FieldsPerRecord, len(row))
	}

	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	return Record{
		Name:                 row[0],
		Category:             row[1],
		Brand:                row[2],
		Description:          row[3],
		Dosage:               row[4],
		Price:                row[5],
		Stock:                row[6],
		RequiresPrescription: row[7],
	}, nil
}

// Normalize converts a spreadsheet record into a canonical product.
// Category and brand stay as names; the loader resolves them to IDs.
func Normalize(r Record) (ent.Product, error) {
	if r.Name == "" {
		return ent.Product{}, fmt.Errorf("name is empty")
	}

	price, err := ParsePrice(r.Price)
	if err != nil {
		return ent.Product{}, fmt.Errorf("price %q: %w", r.Price, err)
	}

	var stock int64
	if r.Stock != "" {
		stock, err = strconv.ParseInt(r.Stock, 10, 32)
		if err != nil || stock < 0 {
			return ent.Product{}, fmt.Errorf("stock %q is not a non-negative integer", r.Stock)
		}
	}

	return ent.Product{
		Name:                 r.Name,
		Slug:                 Slugify(r.Name),
		Description:          r.Description,
		Dosage:               r.Dosage,
		Price:                price,
		StockQuantity:        int32(stock),
		RequiresPrescription: parseBool(r.RequiresPrescription),
		IsActive:             true,
	}, nil
}

// ParsePrice converts a decimal major-unit amount ("12.50") to minor
// units. At most two fraction digits are accepted.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	whole, frac, found := strings.Cut(s, ".")

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("not a non-negative amount")
	}

	var cents int64
	if found {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("want at most two fraction digits")
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("bad fraction")
		}
	}

	return units*100 + cents, nil
}

// Slugify lowercases and hyphenates a name into a URL slug.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
