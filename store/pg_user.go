package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"epharma/ent"
)

func (s *PG) CreateUser(ctx context.Context, u *ent.User) error {
	err := s.db.QueryRowxContext(ctx, `
		insert into "user" (email, password_hash, first_name, last_name, is_admin)
		values ($1, $2, $3, $4, $5)
		returning *
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin).StructScan(u)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %q", ErrDuplicate, u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (s *PG) User(ctx context.Context, id int64) (*ent.User, error) {
	var u ent.User

	err := s.db.GetContext(ctx, &u, `select * from "user" where id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (s *PG) UserByEmail(ctx context.Context, email string) (*ent.User, error) {
	var u ent.User

	err := s.db.GetContext(ctx, &u, `select * from "user" where email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &u, nil
}

func (s *PG) Permissions(ctx context.Context, userID int64) ([]string, error) {
	var perms []string

	err := s.db.SelectContext(ctx, &perms, `
		select permission from user_permission
		where user_id = $1
		order by permission
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select permissions: %w", err)
	}

	return perms, nil
}

func (s *PG) GrantPermission(ctx context.Context, userID int64, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_permission (user_id, permission)
		values ($1, $2)
		on conflict do nothing
	`, userID, permission)
	if err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}

	return nil
}

func (s *PG) RevokePermission(ctx context.Context, userID int64, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		delete from user_permission where user_id = $1 and permission = $2
	`, userID, permission)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}

	return nil
}
