package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"epharma/importer"
)

func exitErr(err error) {
	fmt.Println(err)
	os.Exit(1)
}

func main() {
	if len(os.Args) != 2 {
		exitErr(fmt.Errorf("usage: %s catalog.csv", os.Args[0]))
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		exitErr(err)
	}

	defer f.Close()

	r := csv.NewReader(f)

	r.FieldsPerRecord = importer.FieldsPerRecord
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		exitErr(err)
	}

	db, err := sql.Open("postgres", os.Getenv("POSTGRES_DSN"))
	if err != nil {
		exitErr(err)
	}

	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		exitErr(err)
	}

	categories := map[string]int64{}
	brands := map[string]int64{}

	for i, row := range rows {
		rec, err := importer.FromRow(row)
		if err != nil {
			tx.Rollback()
			exitErr(fmt.Errorf("row %d: %w", i+1, err))
		}

		p, err := importer.Normalize(rec)
		if err != nil {
			tx.Rollback()
			exitErr(fmt.Errorf("row %d: %w", i+1, err))
		}

		if rec.Category != "" {
			id, ok := categories[rec.Category]
			if !ok {
				err = tx.QueryRow(`
					insert into category(name, slug) values ($1, $2)
					on conflict (slug) do update set name = excluded.name
					returning id
				`, rec.Category, importer.Slugify(rec.Category)).Scan(&id)
				if err != nil {
					tx.Rollback()
					exitErr(err)
				}
				categories[rec.Category] = id
			}
			p.CategoryID = &id
		}

		if rec.Brand != "" {
			id, ok := brands[rec.Brand]
			if !ok {
				err = tx.QueryRow(`
					insert into brand(name) values ($1)
					on conflict (name) do update set name = excluded.name
					returning id
				`, rec.Brand).Scan(&id)
				if err != nil {
					tx.Rollback()
					exitErr(err)
				}
				brands[rec.Brand] = id
			}
			p.BrandID = &id
		}

		_, err = tx.Exec(`
			insert into product(category_id, brand_id, name, slug, description,
				dosage, price, stock_quantity, requires_prescription, is_active)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, p.CategoryID, p.BrandID, p.Name, p.Slug, p.Description,
			p.Dosage, p.Price, p.StockQuantity, p.RequiresPrescription, p.IsActive)
		if err != nil {
			tx.Rollback()
			exitErr(fmt.Errorf("row %d: %w", i+1, err))
		}
	}

	err = tx.Commit()
	if err != nil {
		exitErr(err)
	}
}
