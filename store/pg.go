package store

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PG implements every store interface over a Postgres database.
type PG struct {
	db *sqlx.DB
}

func NewPG(db *sqlx.DB) *PG {
	return &PG{db: db}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
