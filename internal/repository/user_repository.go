package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faizvk/ecommerce-app/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,name,role,google_id,provider,age,address,contact,created_at,updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                model.User
		hash             sql.NullString
		googleID         sql.NullString
		age              sql.NullInt64
		address, contact sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &hash, &u.Name, &u.Role, &googleID, &u.Provider,
		&age, &address, &contact, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	if age.Valid {
		n := int(age.Int64)
		u.Age = &n
	}
	if address.Valid {
		u.Address = &address.String
	}
	if contact.Valid {
		u.Contact = &contact.String
	}
	return &u, nil
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Create inserts u, assigning its ID and timestamps.  The email is stored
// lower-cased.  A duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC().Truncate(time.Millisecond)
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, nullString(&u.PasswordHash), u.Name, u.Role, nullString(u.GoogleID), u.Provider,
		nullInt(u.Age), nullString(u.Address), nullString(u.Contact), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "google_id") {
				return ErrConflict
			}
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByGoogleID fetches a user by Google subject id.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, "google_id=?", googleID)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and provider for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash, provider string) error {
	return r.execOne(ctx,
		"UPDATE users SET password_hash=?, provider=?, updated_at=? WHERE id=?",
		hash, provider, time.Now().UTC(), id)
}

// LinkGoogle attaches a Google subject id to an account that has none.
// The password hash and provider are left untouched.
func (r *UserRepo) LinkGoogle(ctx context.Context, id, googleID string) error {
	return r.execOne(ctx,
		"UPDATE users SET google_id=?, updated_at=? WHERE id=? AND google_id IS NULL",
		googleID, time.Now().UTC(), id)
}

// UpdateProfile writes the non-nil fields of p and returns the fresh row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p model.Profile) (*model.User, error) {
	sets := []string{}
	args := []any{}
	if p.Name != nil {
		sets, args = append(sets, "name=?"), append(args, *p.Name)
	}
	if p.Age != nil {
		sets, args = append(sets, "age=?"), append(args, *p.Age)
	}
	if p.Address != nil {
		sets, args = append(sets, "address=?"), append(args, nullString(p.Address))
	}
	if p.Contact != nil {
		sets, args = append(sets, "contact=?"), append(args, nullString(p.Contact))
	}
	if len(sets) > 0 {
		sets, args = append(sets, "updated_at=?"), append(args, time.Now().UTC())
		args = append(args, id)
		if err := r.execOne(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// UpdateRole sets the role of a user and returns the fresh row.
func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) (*model.User, error) {
	if err := r.execOne(ctx,
		"UPDATE users SET role=?, updated_at=? WHERE id=?", role, time.Now().UTC(), id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
