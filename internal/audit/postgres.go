package audit

import (
	"context"
	"database/sql"

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

const auditColumns = `id, company, actor_id, action, target_id, target_type,
	details, ip, user_agent, status, error, created_at`

func (s *PGStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, company, actor_id, action, target_id, target_type, details, ip, user_agent, status, error, created_at)
		 values($1,$2,$3,$4,nullif($5,''),nullif($6,''),$7,$8,$9,$10,nullif($11,''),$12)`,
		e.ID, e.Company, e.ActorID, e.Action, e.TargetID, e.TargetType,
		e.Details, e.IP, e.UserAgent, e.Status, e.Error, e.CreatedAt,
	)
	return err
}

func (s *PGStore) RecentByCompany(ctx context.Context, company string, limit int) ([]Entry, error) {
	return s.query(ctx,
		`select `+auditColumns+` from audit_log where company=$1 order by created_at desc limit $2`,
		company, ClampLimit(limit))
}

func (s *PGStore) RecentByActor(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	return s.query(ctx,
		`select `+auditColumns+` from audit_log where actor_id=$1 order by created_at desc limit $2`,
		actorID, ClampLimit(limit))
}

func (s *PGStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var (
			e          Entry
			targetID   sql.NullString
			targetType sql.NullString
			errMsg     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Company, &e.ActorID, &e.Action, &targetID, &targetType,
			&e.Details, &e.IP, &e.UserAgent, &e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TargetID = targetID.String
		e.TargetType = targetType.String
		e.Error = errMsg.String
		res = append(res, e)
	}
	return res, rows.Err()
}
