package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// CockroachConfig holds connection pool settings for the persistent Store.
type CockroachConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultCockroachConfig returns sensible pool defaults.
func DefaultCockroachConfig() *CockroachConfig {
	return &CockroachConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// CockroachStore implements Store against Postgres/CockroachDB.
type CockroachStore struct {
	db *sql.DB
}

// NewCockroachStoreFromDSN opens and pings a connection, per §6's
// AGENTCORE_DATABASE_URL contract.
func NewCockroachStoreFromDSN(dsn string, config *CockroachConfig) (*CockroachStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultCockroachConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &CockroachStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *CockroachStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *CockroachStore) CreateRecord(ctx context.Context, rec *ExecutionRecord) error {
	if rec == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_records
			(id, session_id, project_id, type, tool_name, input, output, success, duration_ms, error_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		rec.ID, rec.SessionID, nullableString(rec.ProjectID), rec.Type, rec.ToolName,
		rec.Input, rec.Output, rec.Success, rec.DurationMS, nullableString(rec.ErrorMessage), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create execution record: %w", err)
	}
	return nil
}

func (s *CockroachStore) ListRecords(ctx context.Context, limit, offset int) ([]*ExecutionRecord, error) {
	query := `
		SELECT id, session_id, project_id, type, tool_name, input, output, success, duration_ms, error_message, created_at
		FROM execution_records
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list execution records: %w", err)
	}
	defer rows.Close()

	var out []*ExecutionRecord
	for rows.Next() {
		var (
			rec       ExecutionRecord
			projectID sql.NullString
			errMsg    sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &projectID, &rec.Type, &rec.ToolName,
			&rec.Input, &rec.Output, &rec.Success, &rec.DurationMS, &errMsg, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		rec.ProjectID = projectID.String
		rec.ErrorMessage = errMsg.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *CockroachStore) UpsertSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, mode, started_at, ended_at, turn_count, tokens_used, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			mode = EXCLUDED.mode,
			ended_at = EXCLUDED.ended_at,
			turn_count = EXCLUDED.turn_count,
			tokens_used = EXCLUDED.tokens_used,
			status = EXCLUDED.status
	`, sess.ID, sess.Mode, sess.StartedAt, nullTime(sess.EndedAt), sess.TurnCount, sess.TokensUsed, string(sess.Status))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *CockroachStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, ended_at, turn_count, tokens_used, status
		FROM sessions WHERE id = $1
	`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *CockroachStore) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `
		SELECT id, mode, started_at, ended_at, turn_count, tokens_used, status
		FROM sessions
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *CockroachStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_records WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune execution records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune execution records: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(scanner rowScanner) (*Session, error) {
	var (
		sess    Session
		status  string
		endedAt sql.NullTime
	)
	if err := scanner.Scan(&sess.ID, &sess.Mode, &sess.StartedAt, &endedAt, &sess.TurnCount, &sess.TokensUsed, &status); err != nil {
		return nil, err
	}
	sess.Status = SessionStatus(status)
	if endedAt.Valid {
		sess.EndedAt = endedAt.Time
	}
	return &sess, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
