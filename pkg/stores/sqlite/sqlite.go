/*
Package sqlite is the relational persistence gateway. It is the source of
truth for sessions, memory logs, reinforcement trails, goals, beliefs,
specialist executions and the append-only audit trail.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ybryxcapital/agentcore/pkg/memory"
)

// Gateway implements memory.Gateway on a single SQLite database.
type Gateway struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema.
// Pass ":memory:" for an ephemeral database.
func New(path string) (*Gateway, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	gateway := &Gateway{db: db}
	if err := gateway.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return gateway, nil
}

func (g *Gateway) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		agent          TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'active',
		context        TEXT,
		started_at     INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL,
		ended_at       INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

	CREATE TABLE IF NOT EXISTS memory_logs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		session_id TEXT NOT NULL,
		agent      TEXT,
		kind       TEXT NOT NULL,
		content    TEXT NOT NULL,
		tags       TEXT,
		vector_id  TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memory_logs_user ON memory_logs(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_memory_logs_session ON memory_logs(session_id);

	CREATE TABLE IF NOT EXISTS reinforcements (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		vector_id  TEXT NOT NULL,
		delta      REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reinforcements_vector ON reinforcements(vector_id);

	CREATE TABLE IF NOT EXISTS goals (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		session_id  TEXT,
		description TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'active',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id, status);

	CREATE TABLE IF NOT EXISTS beliefs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		session_id TEXT,
		statement  TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0.5,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_beliefs_user ON beliefs(user_id);

	CREATE TABLE IF NOT EXISTS audit_events (
		id         TEXT PRIMARY KEY,
		session_id TEXT,
		user_id    TEXT,
		operation  TEXT NOT NULL,
		severity   TEXT NOT NULL,
		message    TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_events(session_id);

	CREATE TABLE IF NOT EXISTS agent_executions (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		session_id   TEXT NOT NULL,
		agent        TEXT NOT NULL,
		execution_id TEXT,
		input        TEXT,
		output       TEXT,
		status       TEXT NOT NULL,
		error_detail TEXT,
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_session ON agent_executions(session_id);
	`

	_, err := g.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Ping checks the database is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// CreateSession inserts a new active session row and returns its id.
func (g *Gateway) CreateSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = memory.SessionActive
	}

	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return "", fmt.Errorf("failed to encode session context: %w", err)
	}

	_, err = g.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, agent, status, context, started_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Agent, string(session.Status),
		string(contextJSON), session.StartedAt.UnixNano(), session.StartedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return session.ID, nil
}

// CloseSession finalizes a session with the given terminal status.
func (g *Gateway) CloseSession(ctx context.Context, sessionID string, status memory.SessionStatus) error {
	result, err := g.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().UnixNano(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}

	return nil
}

// GetSession loads one session row.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (memory.Session, error) {
	var (
		session     memory.Session
		status      string
		contextJSON sql.NullString
		startedAt   int64
		endedAt     sql.NullInt64
	)

	err := g.db.QueryRowContext(ctx,
		`SELECT id, user_id, agent, status, context, started_at, ended_at
		 FROM sessions WHERE id = ?`, sessionID,
	).Scan(&session.ID, &session.UserID, &session.Agent, &status, &contextJSON, &startedAt, &endedAt)
	if err != nil {
		return memory.Session{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	session.Status = memory.SessionStatus(status)
	session.StartedAt = time.Unix(0, startedAt).UTC()

	if endedAt.Valid {
		ended := time.Unix(0, endedAt.Int64).UTC()
		session.EndedAt = &ended
	}

	if contextJSON.Valid && contextJSON.String != "" && contextJSON.String != "null" {
		_ = json.Unmarshal([]byte(contextJSON.String), &session.Context)
	}

	return session, nil
}

// SweepIdle marks every active session idle for longer than the threshold as
// timed out. Safe to run repeatedly.
func (g *Gateway) SweepIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-idleFor).UnixNano()

	result, err := g.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ?
		 WHERE status = ? AND last_active_at < ?`,
		string(memory.SessionTimedOut), now.UnixNano(),
		string(memory.SessionActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep idle sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// InsertMemoryLog appends one canonical memory row and touches the owning
// session's activity clock.
func (g *Gateway) InsertMemoryLog(ctx context.Context, row memory.MemoryLog) (string, error) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := json.Marshal(row.Tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = g.db.ExecContext(ctx,
		`INSERT INTO memory_logs (id, user_id, session_id, agent, kind, content, tags, vector_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.SessionID, row.Agent, string(row.Kind),
		row.Content, string(tagsJSON), row.VectorID, row.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert memory log: %w", err)
	}

	_, _ = g.db.ExecContext(ctx,
		`UPDATE sessions SET last_active_at = ? WHERE id = ?`,
		row.CreatedAt.UnixNano(), row.SessionID,
	)

	return row.ID, nil
}

// DeleteMemoryLogsBefore removes a user's rows older than the cutoff,
// optionally restricted to one kind.
func (g *Gateway) DeleteMemoryLogsBefore(ctx context.Context, userID string, cutoff time.Time, kind memory.Kind) (int, error) {
	query := `DELETE FROM memory_logs WHERE user_id = ? AND created_at < ?`
	args := []any{userID, cutoff.UnixNano()}

	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}

	result, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memory logs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// AppendReinforcement records one feedback delta against a vector id.
func (g *Gateway) AppendReinforcement(ctx context.Context, vectorID string, delta float64) error {
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO reinforcements (vector_id, delta, created_at) VALUES (?, ?, ?)`,
		vectorID, delta, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append reinforcement: %w", err)
	}

	return nil
}

// ReinforcementSums returns the summed deltas for each requested vector id.
// Ids with no trail are simply absent from the result.
func (g *Gateway) ReinforcementSums(ctx context.Context, vectorIDs []string) (map[string]float64, error) {
	sums := make(map[string]float64, len(vectorIDs))
	if len(vectorIDs) == 0 {
		return sums, nil
	}

	placeholders := ""
	args := make([]any, 0, len(vectorIDs))
	for i, id := range vectorIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}

	rows, err := g.db.QueryContext(ctx,
		`SELECT vector_id, SUM(delta) FROM reinforcements
		 WHERE vector_id IN (`+placeholders+`) GROUP BY vector_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum reinforcements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			sum float64
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		sums[id] = sum
	}

	return sums, rows.Err()
}

// UpsertGoal stores or replaces one goal.
func (g *Gateway) UpsertGoal(ctx context.Context, goal memory.Goal) (string, error) {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	if goal.Status == "" {
		goal.Status = "active"
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, session_id, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET description = excluded.description, status = excluded.status`,
		goal.ID, goal.UserID, goal.SessionID, goal.Description, goal.Status, goal.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert goal: %w", err)
	}

	return goal.ID, nil
}

// ActiveGoals lists a user's active goals, newest first. Goals bound to other
// sessions are excluded; unscoped goals are always included.
func (g *Gateway) ActiveGoals(ctx context.Context, userID, sessionID string) ([]memory.Goal, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, description, status, created_at FROM goals
		 WHERE user_id = ? AND status = 'active' AND (session_id = ? OR session_id = '' OR session_id IS NULL)
		 ORDER BY created_at DESC`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	defer rows.Close()

	var goals []memory.Goal
	for rows.Next() {
		var (
			goal      memory.Goal
			sessionID sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&goal.ID, &goal.UserID, &sessionID, &goal.Description, &goal.Status, &createdAt); err != nil {
			return nil, err
		}
		goal.SessionID = sessionID.String
		goal.CreatedAt = time.Unix(0, createdAt).UTC()
		goals = append(goals, goal)
	}

	return goals, rows.Err()
}

// UpsertBelief stores or replaces one belief.
func (g *Gateway) UpsertBelief(ctx context.Context, belief memory.Belief) (string, error) {
	if belief.ID == "" {
		belief.ID = uuid.New().String()
	}
	if belief.CreatedAt.IsZero() {
		belief.CreatedAt = time.Now().UTC()
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO beliefs (id, user_id, session_id, statement, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET statement = excluded.statement, confidence = excluded.confidence`,
		belief.ID, belief.UserID, belief.SessionID, belief.Statement, belief.Confidence, belief.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert belief: %w", err)
	}

	return belief.ID, nil
}

// Beliefs lists a user's beliefs, most confident first.
func (g *Gateway) Beliefs(ctx context.Context, userID, sessionID string) ([]memory.Belief, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, statement, confidence, created_at FROM beliefs
		 WHERE user_id = ? AND (session_id = ? OR session_id = '' OR session_id IS NULL)
		 ORDER BY confidence DESC`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load beliefs: %w", err)
	}
	defer rows.Close()

	var beliefs []memory.Belief
	for rows.Next() {
		var (
			belief    memory.Belief
			sessionID sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&belief.ID, &belief.UserID, &sessionID, &belief.Statement, &belief.Confidence, &createdAt); err != nil {
			return nil, err
		}
		belief.SessionID = sessionID.String
		belief.CreatedAt = time.Unix(0, createdAt).UTC()
		beliefs = append(beliefs, belief)
	}

	return beliefs, rows.Err()
}

// AppendAudit writes one immutable audit line. There is no update or delete
// path for this table.
func (g *Gateway) AppendAudit(ctx context.Context, event memory.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, session_id, user_id, operation, severity, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.SessionID, event.UserID, event.Operation,
		event.Severity, event.Message, event.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// AuditEvents lists the audit trail for one session, oldest first.
func (g *Gateway) AuditEvents(ctx context.Context, sessionID string) ([]memory.AuditEvent, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, session_id, user_id, operation, severity, message, created_at
		 FROM audit_events WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit events: %w", err)
	}
	defer rows.Close()

	var events []memory.AuditEvent
	for rows.Next() {
		var (
			event     memory.AuditEvent
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.SessionID, &event.UserID, &event.Operation, &event.Severity, &event.Message, &createdAt); err != nil {
			return nil, err
		}
		event.Timestamp = time.Unix(0, createdAt).UTC()
		events = append(events, event)
	}

	return events, rows.Err()
}

// InsertExecution records one specialist execution.
func (g *Gateway) InsertExecution(ctx context.Context, row memory.ExecutionLog) (string, error) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO agent_executions (id, user_id, session_id, agent, execution_id, input, output, status, error_detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.SessionID, row.Agent, row.ExecutionID,
		row.Input, row.Output, row.Status, row.ErrorDetail, row.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert execution: %w", err)
	}

	return row.ID, nil
}
