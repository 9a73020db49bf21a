package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/callqa/callqa/internal/pkg/api"
	"github.com/callqa/callqa/internal/pkg/persistence"
	"github.com/callqa/callqa/internal/pkg/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

const callFields = `id, file_name, object_key, storage_url, status, transcription,
	evaluation, error, agent_id, email, created, updated`

// InsertCall inserts new call record into DB
// created/updated timestamps are assigned by the DB server
func (db *DB) InsertCall(ctx context.Context, item *persistence.CallRecord) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO calls(id, file_name, object_key, storage_url,
	status, agent_id, email, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $7, now(), now())`, item.ID, item.FileName, item.ObjectKey,
		item.StorageURL, item.Status, item.AgentID, item.Email)
	if err != nil {
		return fmt.Errorf("can't insert call: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadCall loads call record from DB, returns nil if no record found
func (db *DB) LoadCall(ctx context.Context, id string) (*persistence.CallRecord, error) {
	var res persistence.CallRecord
	err := db.pool.QueryRow(ctx, `SELECT `+callFields+` FROM calls WHERE id = $1`, id).
		Scan(&res.ID, &res.FileName, &res.ObjectKey, &res.StorageURL, &res.Status, &res.Transcription,
			&res.Evaluation, &res.Error, &res.AgentID, &res.Email, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load call: %w", err)
	}
	return &res, nil
}

// UpdateStatus writes new status value for the record
func (db *DB) UpdateStatus(ctx context.Context, id string, st status.Status) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE calls SET status = $2, updated = now() WHERE id = $1`,
		id, st.String())
	if err != nil {
		return fmt.Errorf("can't update status: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update status, no record found")
	}
	return nil
}

// SaveTranscription persists transcription together with the next status
func (db *DB) SaveTranscription(ctx context.Context, id, text string, st status.Status) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE calls SET transcription = $2, status = $3, updated = now()
	WHERE id = $1`, id, text, st.String())
	if err != nil {
		return fmt.Errorf("can't save transcription: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't save transcription, no record found")
	}
	return nil
}

// CommitEvaluation persists evaluation together with the next status in one write,
// so observers never see a completed record without its evaluation
func (db *DB) CommitEvaluation(ctx context.Context, id string, ev *api.RubricScore, st status.Status) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE calls SET evaluation = $2, status = $3, updated = now()
	WHERE id = $1`, id, ev, st.String())
	if err != nil {
		return fmt.Errorf("can't save evaluation: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't save evaluation, no record found")
	}
	return nil
}

// SaveFailure moves the record to terminal FAILED status with a non-empty error description
func (db *DB) SaveFailure(ctx context.Context, id, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	cmd, err := db.pool.Exec(ctx, `UPDATE calls SET status = $2, error = $3, updated = now()
	WHERE id = $1`, id, status.Failed.String(), errMsg)
	if err != nil {
		return fmt.Errorf("can't save failure: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't save failure, no record found")
	}
	return nil
}

// ResetCall prepares a failed record for reprocessing
func (db *DB) ResetCall(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE calls SET status = $2, transcription = NULL,
	evaluation = NULL, error = NULL, updated = now() WHERE id = $1`, id, status.Uploaded.String())
	if err != nil {
		return fmt.Errorf("can't reset call: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't reset call, no record found")
	}
	return nil
}

// ListCompletedCalls loads completed records, optionally limited to the created range
func (db *DB) ListCompletedCalls(ctx context.Context, from, to *time.Time) ([]*persistence.CallRecord, error) {
	q := `SELECT ` + callFields + ` FROM calls WHERE status = $1`
	args := []interface{}{status.Completed.String()}
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(" AND created >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(" AND created <= $%d", len(args))
	}
	q += " ORDER BY created"
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select calls: %w", err)
	}
	defer rows.Close()
	res := []*persistence.CallRecord{}
	for rows.Next() {
		var item persistence.CallRecord
		if err := rows.Scan(&item.ID, &item.FileName, &item.ObjectKey, &item.StorageURL, &item.Status,
			&item.Transcription, &item.Evaluation, &item.Error, &item.AgentID, &item.Email,
			&item.Created, &item.Updated); err != nil {
			return nil, fmt.Errorf("can't scan call: %w", err)
		}
		res = append(res, &item)
	}
	return res, nil
}

// InsertAgent inserts roster entry into DB
func (db *DB) InsertAgent(ctx context.Context, item *persistence.Agent) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO agents(id, name, email, created, updated)
	VALUES($1, $2, $3, now(), now())`, item.ID, item.Name, item.Email)
	if err != nil {
		return fmt.Errorf("can't insert agent: %w", err)
	}
	defer rows.Close()
	return nil
}

// ListAgents loads the full agent roster
func (db *DB) ListAgents(ctx context.Context) ([]*persistence.Agent, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, email, created, updated FROM agents ORDER BY created`)
	if err != nil {
		return nil, fmt.Errorf("can't select agents: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Agent{}
	for rows.Next() {
		var item persistence.Agent
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.Created, &item.Updated); err != nil {
			return nil, fmt.Errorf("can't scan agent: %w", err)
		}
		res = append(res, &item)
	}
	return res, nil
}

// LockEmailTable marks email of type msgType as being sent for ID
// guarantees not to send the same email twice
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	cmd, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, msg_type, status) VALUES ($1, $2, 1)
	ON CONFLICT (id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`, id, msgType)
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't lock email table - already locked")
	}
	return nil
}

// UnLockEmailTable leaves the lock value after the sending attempt
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 AND msg_type = $2`,
		id, msgType, *value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't unlock email table, no lock found")
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'calls')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
