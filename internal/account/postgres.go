package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, name, email, password_hash, company, role, is_verified,
	refresh_token, reset_token_digest, reset_expires, last_login, manager_id,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, name, email, password_hash, company, role, is_verified, manager_id)
		 values($1,$2,$3,$4,$5,$6,$7,nullif($8,''))`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Company, string(a.Role), a.IsVerified, a.ManagerID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.findOne(ctx, `select `+accountColumns+` from accounts where id=$1`, id)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `select `+accountColumns+` from accounts where email=$1`, email)
}

func (s *PGStore) FindByResetDigest(ctx context.Context, digest string) (*Account, error) {
	return s.findOne(ctx, `select `+accountColumns+` from accounts where reset_token_digest=$1`, digest)
}

func (s *PGStore) findOne(ctx context.Context, query string, arg any) (*Account, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PGStore) ListByCompany(ctx context.Context, company string) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts where company=$1 order by created_at`, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *PGStore) HasVerifiedAdmin(ctx context.Context, company string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from accounts where company=$1 and role='admin' and is_verified)`,
		company).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PGStore) UpdateName(ctx context.Context, id, name string) error {
	return s.exec(ctx, `update accounts set name=$2, updated_at=now() where id=$1`, id, name)
}

func (s *PGStore) SetRefreshToken(ctx context.Context, id, token string, lastLogin time.Time) error {
	return s.exec(ctx,
		`update accounts set refresh_token=$2, last_login=$3, updated_at=now() where id=$1`,
		id, token, lastLogin)
}

func (s *PGStore) ClearRefreshToken(ctx context.Context, id string) error {
	return s.exec(ctx, `update accounts set refresh_token=null, updated_at=now() where id=$1`, id)
}

func (s *PGStore) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	return s.exec(ctx,
		`update accounts set reset_token_digest=$2, reset_expires=$3, updated_at=now() where id=$1`,
		id, digest, expires)
}

func (s *PGStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx,
		`update accounts set password_hash=$2, reset_token_digest=null, reset_expires=null,
		 refresh_token=null, updated_at=now() where id=$1`,
		id, passwordHash)
}

func (s *PGStore) SetVerified(ctx context.Context, id string, verified bool) error {
	return s.exec(ctx, `update accounts set is_verified=$2, updated_at=now() where id=$1`, id, verified)
}

func (s *PGStore) SetRole(ctx context.Context, id string, role Role) error {
	return s.exec(ctx, `update accounts set role=$2, updated_at=now() where id=$1`, id, string(role))
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a            Account
		role         string
		refreshToken sql.NullString
		resetDigest  sql.NullString
		resetExpires sql.NullTime
		lastLogin    sql.NullTime
		managerID    sql.NullString
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Company, &role, &a.IsVerified,
		&refreshToken, &resetDigest, &resetExpires, &lastLogin, &managerID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = Role(role)
	a.RefreshToken = refreshToken.String
	a.ResetTokenDigest = resetDigest.String
	if resetExpires.Valid {
		a.ResetExpires = resetExpires.Time
	}
	if lastLogin.Valid {
		a.LastLogin = lastLogin.Time
	}
	a.ManagerID = managerID.String
	return &a, nil
}
