package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"epharma/ent"
)

func (s *PG) CreatePrescription(ctx context.Context, p *ent.Prescription, files []ent.PrescriptionFile) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowxContext(ctx, `
		insert into prescription (user_id, patient_name, doctor_name,
		                          doctor_contact, prescription_date,
		                          medications, status)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning *
	`, p.UserID, p.PatientName, p.DoctorName, p.DoctorContact,
		p.PrescriptionDate, p.Medications, ent.PrescriptionPending).
		StructScan(p)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}

	for i, f := range files {
		var saved ent.PrescriptionFile
		err = tx.QueryRowxContext(ctx, `
			insert into prescription_file (prescription_id, filename, url,
			                               content_type, size, position)
			values ($1, $2, $3, $4, $5, $6)
			returning *
		`, p.ID, f.Filename, f.URL, f.ContentType, f.Size, i).StructScan(&saved)
		if err != nil {
			return fmt.Errorf("insert prescription file: %w", err)
		}
		p.Files = append(p.Files, saved)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit prescription: %w", err)
	}

	return nil
}

func (s *PG) Prescriptions(ctx context.Context, userID int64) ([]ent.Prescription, error) {
	var ps []ent.Prescription

	err := s.db.SelectContext(ctx, &ps, `
		select * from prescription where user_id = $1 order by created_at desc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select prescriptions: %w", err)
	}

	if err := s.attachPrescriptionFiles(ctx, ps); err != nil {
		return nil, err
	}

	return ps, nil
}

func (s *PG) PrescriptionsByStatus(ctx context.Context, status string) ([]ent.Prescription, error) {
	var (
		ps  []ent.Prescription
		err error
	)

	if status != "" {
		err = s.db.SelectContext(ctx, &ps, `
			select * from prescription where status = $1 order by created_at desc
		`, status)
	} else {
		err = s.db.SelectContext(ctx, &ps, `
			select * from prescription order by created_at desc
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("select prescriptions by status: %w", err)
	}

	if err := s.attachPrescriptionFiles(ctx, ps); err != nil {
		return nil, err
	}

	return ps, nil
}

func (s *PG) Prescription(ctx context.Context, id int64) (*ent.Prescription, error) {
	var p ent.Prescription

	err := s.db.GetContext(ctx, &p, `select * from prescription where id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prescription: %w", err)
	}

	ps := []ent.Prescription{p}
	if err := s.attachPrescriptionFiles(ctx, ps); err != nil {
		return nil, err
	}

	return &ps[0], nil
}

func (s *PG) ReviewPrescription(ctx context.Context, id int64, status, notes string, reviewerID int64) (*ent.Prescription, error) {
	var p ent.Prescription

	// The status guard makes the transition one-way: a record that has
	// left pending can never be re-reviewed or flipped.
	err := s.db.QueryRowxContext(ctx, `
		update prescription
		set status = $2, review_notes = $3, reviewed_by = $4, updated_at = now()
		where id = $1 and status = 'pending'
		returning *
	`, id, status, notes, reviewerID).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		err = s.db.GetContext(ctx, &exists,
			`select exists(select 1 from prescription where id = $1)`, id)
		if err != nil {
			return nil, fmt.Errorf("check prescription: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyReviewed
	}
	if err != nil {
		return nil, fmt.Errorf("review prescription: %w", err)
	}

	ps := []ent.Prescription{p}
	if err := s.attachPrescriptionFiles(ctx, ps); err != nil {
		return nil, err
	}

	return &ps[0], nil
}

func (s *PG) HasVerifiedPrescription(ctx context.Context, userID int64) (bool, error) {
	var ok bool

	err := s.db.GetContext(ctx, &ok, `
		select exists(select 1 from prescription where user_id = $1 and status = 'verified')
	`, userID)
	if err != nil {
		return false, fmt.Errorf("check verified prescription: %w", err)
	}

	return ok, nil
}

func (s *PG) attachPrescriptionFiles(ctx context.Context, ps []ent.Prescription) error {
	if len(ps) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}

	var files []ent.PrescriptionFile
	err := s.db.SelectContext(ctx, &files, `
		select * from prescription_file
		where prescription_id = any($1)
		order by prescription_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select prescription files: %w", err)
	}

	byRx := map[int64][]ent.PrescriptionFile{}
	for _, f := range files {
		byRx[f.PrescriptionID] = append(byRx[f.PrescriptionID], f)
	}
	for i := range ps {
		ps[i].Files = byRx[ps[i].ID]
	}

	return nil
}
