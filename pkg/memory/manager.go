package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ybryxcapital/agentcore/pkg/errors"
)

// Config tunes a Manager instance.
type Config struct {
	Window      int
	Weights     Weights
	HalfLife    time.Duration
	RecallLimit int
	Retry       *errors.RetryConfig
}

// DefaultConfig returns the standard manager parameters.
func DefaultConfig() Config {
	return Config{
		Window:      DefaultWindow,
		Weights:     DefaultWeights(),
		HalfLife:    DefaultHalfLife,
		RecallLimit: DefaultTopK,
		Retry:       errors.DefaultRetryConfig(),
	}
}

/*
Manager is the sole authority for memory operations. It composes the thread
buffer, the vector store, the composite scorer and the persistence gateway;
no other component touches those directly. One Manager is constructed per
process (or per tenant) and passed explicitly to its consumers.

Degradation policy: reads degrade to empty results plus an audit event when a
backend is down. Writes of the canonical relational record are never silently
swallowed; vector writes are best-effort.
*/
type Manager struct {
	ns       Namespace
	buffer   *ThreadBuffer
	gateway  Gateway
	vector   VectorStore
	embedder Embedder
	scorer   *CompositeScorer
	retry    *errors.RetryConfig
}

// NewManager wires a manager for one namespace. The vector store and embedder
// may be nil; retrieval then degrades to thread-only context.
func NewManager(ns Namespace, gateway Gateway, vector VectorStore, embedder Embedder, cfg Config) (*Manager, error) {
	if gateway == nil {
		return nil, fmt.Errorf("memory manager requires a persistence gateway")
	}

	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = DefaultTopK
	}
	if cfg.Retry == nil {
		cfg.Retry = errors.DefaultRetryConfig()
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}

	scorer, err := NewCompositeScorer(cfg.Weights, cfg.HalfLife, cfg.RecallLimit)
	if err != nil {
		return nil, err
	}

	return &Manager{
		ns:       ns,
		buffer:   NewThreadBuffer(cfg.Window),
		gateway:  gateway,
		vector:   vector,
		embedder: embedder,
		scorer:   scorer,
		retry:    cfg.Retry,
	}, nil
}

// Namespace returns the manager's base isolation key.
func (m *Manager) Namespace() Namespace { return m.ns }

// threadKey scopes buffer access to this manager's namespace, so two managers
// sharing a session id can never read each other's thread.
func (m *Manager) threadKey(sessionID string) string {
	return m.ns.ThreadKey(sessionID)
}

// AppendThread records one turn of short-term context. This and RecentThread
// are the only mutation points for the thread buffer.
func (m *Manager) AppendThread(sessionID string, role Role, content string) {
	m.buffer.Append(m.threadKey(sessionID), role, content)
}

// RecentThread returns the session's bounded history, most recent last.
func (m *Manager) RecentThread(sessionID string) []ThreadEntry {
	return m.buffer.Recent(m.threadKey(sessionID))
}

// LoadOptions tune a LoadContext call.
type LoadOptions struct {
	Query          string
	IncludeGoals   bool
	IncludeBeliefs bool
	MaxMemories    int
}

/*
LoadContext assembles the aggregate context object for one turn: recent thread
entries, recalled memories scored against the query (or the latest user
input), and active goals and beliefs. Partial failures degrade to empty
slices, each audited as a degraded read; the call itself never fails.
*/
func (m *Manager) LoadContext(ctx context.Context, userID, sessionID string, opts LoadOptions) Context {
	out := Context{
		RecentMessages:    m.buffer.Recent(m.threadKey(sessionID)),
		RetrievedMemories: []Record{},
		Goals:             []Goal{},
		Beliefs:           []Belief{},
	}

	query := opts.Query
	if query == "" {
		for i := len(out.RecentMessages) - 1; i >= 0; i-- {
			if out.RecentMessages[i].Role == RoleUser {
				query = out.RecentMessages[i].Content
				break
			}
		}
	}

	if query != "" {
		out.RetrievedMemories = m.RecallMemory(ctx, userID, query, sessionID, nil, opts.MaxMemories)
	}

	if opts.IncludeGoals {
		goals, err := m.gateway.ActiveGoals(ctx, userID, sessionID)
		if err != nil {
			m.audit(ctx, sessionID, userID, "degraded_read", "warn",
				fmt.Sprintf("goals unavailable: %v", err))
		} else {
			out.Goals = goals
		}
	}

	if opts.IncludeBeliefs {
		beliefs, err := m.gateway.Beliefs(ctx, userID, sessionID)
		if err != nil {
			m.audit(ctx, sessionID, userID, "degraded_read", "warn",
				fmt.Sprintf("beliefs unavailable: %v", err))
		} else {
			out.Beliefs = beliefs
		}
	}

	if len(out.RetrievedMemories) > 0 {
		var total float64
		for _, record := range out.RetrievedMemories {
			total += record.CompositeScore
		}
		out.ConfidenceScore = total / float64(len(out.RetrievedMemories))
	}

	log.Debug("context loaded",
		"session", sessionID,
		"messages", len(out.RecentMessages),
		"memories", len(out.RetrievedMemories),
		"goals", len(out.Goals),
		"beliefs", len(out.Beliefs))

	return out
}

/*
WriteMemory validates the payload envelope, appends the thread buffer, writes
the canonical relational row, and best-effort mirrors the record into the
vector store. The receipt's outcome states exactly how far the dual-write got.
A relational failure fails the call; a vector failure only degrades it.
*/
func (m *Manager) WriteMemory(ctx context.Context, userID, sessionID string, env Envelope, kind Kind, tags []string) (WriteReceipt, error) {
	if err := ValidateEnvelope(env); err != nil {
		return WriteReceipt{Outcome: WriteFailed}, err
	}

	contentBytes, err := json.Marshal(env.Content)
	if err != nil {
		return WriteReceipt{Outcome: WriteFailed}, errors.NewValidationError("content", err.Error())
	}
	contentText := string(contentBytes)

	m.buffer.Append(m.threadKey(sessionID), RoleAssistant, contentText)

	vectorID := m.storeVector(ctx, userID, sessionID, contentText, kind, tags)

	row := MemoryLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Agent:     env.Agent,
		Kind:      kind,
		Content:   contentText,
		Tags:      tags,
		VectorID:  vectorID,
		CreatedAt: time.Now().UTC(),
	}

	var relationalID string
	err = errors.RetryWithBackoff(ctx, m.retry, func() error {
		id, insertErr := m.gateway.InsertMemoryLog(ctx, row)
		if insertErr != nil {
			return errors.NewTransientStoreError("relational", "insert", insertErr)
		}
		relationalID = id
		return nil
	})
	if err != nil {
		m.audit(ctx, sessionID, userID, "write_failed", "error",
			fmt.Sprintf("relational write failed: %v", err))
		if vectorID != "" {
			m.audit(ctx, sessionID, userID, "write_failed", "warn",
				fmt.Sprintf("orphaned vector record %s", vectorID))
		}
		return WriteReceipt{Outcome: WriteFailed, VectorID: vectorID}, err
	}

	receipt := WriteReceipt{
		Outcome:      WriteFull,
		RelationalID: relationalID,
		VectorID:     vectorID,
	}
	if vectorID == "" {
		receipt.Outcome = WriteRelationalOnly
	}

	m.audit(ctx, sessionID, userID, "write", "info",
		fmt.Sprintf("memory written (%s, kind=%s)", receipt.Outcome, kind))

	log.Info("memory written",
		"session", sessionID,
		"kind", kind,
		"outcome", receipt.Outcome.String(),
		"relational_id", relationalID)

	return receipt, nil
}

// storeVector embeds and upserts the record, returning its id or "" when the
// vector path is unavailable or failed. Failures are audited, never fatal.
func (m *Manager) storeVector(ctx context.Context, userID, sessionID, content string, kind Kind, tags []string) string {
	if m.vector == nil || m.embedder == nil {
		return ""
	}

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		m.audit(ctx, sessionID, userID, "write_degraded", "warn",
			fmt.Sprintf("embedding failed: %v", err))
		return ""
	}

	record := Record{
		ID:        uuid.NewString(),
		Namespace: m.ns.UserKey(userID),
		SessionID: sessionID,
		Content:   content,
		Embedding: embedding,
		Kind:      kind,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	var vectorID string
	err = errors.RetryWithBackoff(ctx, m.retry, func() error {
		id, storeErr := m.vector.StoreRecord(ctx, record)
		if storeErr != nil {
			return errors.NewTransientStoreError("vector", "store", storeErr)
		}
		vectorID = id
		return nil
	})
	if err != nil {
		m.audit(ctx, sessionID, userID, "write_degraded", "warn",
			fmt.Sprintf("vector write failed: %v", err))
		return ""
	}

	return vectorID
}

/*
RecallMemory runs a similarity query scoped to the caller's namespace, joins
in reinforcement sums from the gateway, and ranks the candidates with the
composite scorer. An unavailable vector store or empty result set yields an
empty slice, never an error.
*/
func (m *Manager) RecallMemory(ctx context.Context, userID, query, sessionID string, tags []string, limit int) []Record {
	if m.vector == nil || m.embedder == nil {
		return []Record{}
	}
	if limit <= 0 {
		limit = m.scorer.TopK()
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.audit(ctx, sessionID, userID, "degraded_read", "warn",
			fmt.Sprintf("query embedding failed: %v", err))
		return []Record{}
	}

	var candidates []Record
	err = errors.RetryWithBackoff(ctx, m.retry, func() error {
		found, searchErr := m.vector.SearchSimilar(ctx, VectorQuery{
			Namespace: m.ns.UserKey(userID),
			SessionID: sessionID,
			Embedding: embedding,
			Tags:      tags,
			Limit:     limit * 2, // headroom for re-ranking
		})
		if searchErr != nil {
			return errors.NewTransientStoreError("vector", "search", searchErr)
		}
		candidates = found
		return nil
	})
	if err != nil {
		m.audit(ctx, sessionID, userID, "degraded_read", "warn",
			fmt.Sprintf("vector search failed: %v", err))
		return []Record{}
	}

	if len(candidates) == 0 {
		return []Record{}
	}

	vectorIDs := make([]string, len(candidates))
	for i, record := range candidates {
		vectorIDs[i] = record.ID
	}

	sums, err := m.gateway.ReinforcementSums(ctx, vectorIDs)
	if err != nil {
		m.audit(ctx, sessionID, userID, "degraded_read", "warn",
			fmt.Sprintf("reinforcement sums unavailable: %v", err))
		sums = map[string]float64{}
	}
	for i := range candidates {
		candidates[i].Reinforcement = sums[candidates[i].ID]
	}

	ranked := m.scorer.Rank(candidates, time.Now().UTC())
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	m.audit(ctx, sessionID, userID, "recall", "info",
		fmt.Sprintf("recalled %d records", len(ranked)))

	return ranked
}

/*
DecayMemory permanently removes records older than the retention threshold
from both stores. Idempotent: a second pass with no intervening writes deletes
nothing. The relational deletion is canonical and surfaces its errors; the
vector deletion is best-effort.
*/
func (m *Manager) DecayMemory(ctx context.Context, userID string, thresholdDays int, kind Kind) (DecayResult, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -thresholdDays)
	result := DecayResult{}

	err := errors.RetryWithBackoff(ctx, m.retry, func() error {
		deleted, delErr := m.gateway.DeleteMemoryLogsBefore(ctx, userID, cutoff, kind)
		if delErr != nil {
			return errors.NewTransientStoreError("relational", "delete", delErr)
		}
		result.RelationalDeleted = deleted
		return nil
	})
	if err != nil {
		m.audit(ctx, "", userID, "decay", "error", fmt.Sprintf("decay failed: %v", err))
		return result, err
	}

	if m.vector != nil {
		deleted, delErr := m.vector.DeleteOlderThan(ctx, m.ns.UserKey(userID), cutoff, kind)
		if delErr != nil {
			m.audit(ctx, "", userID, "decay", "warn",
				fmt.Sprintf("vector decay failed: %v", delErr))
		} else {
			result.VectorDeleted = deleted
		}
	}

	m.audit(ctx, "", userID, "decay", "info",
		fmt.Sprintf("decayed %d relational, %d vector records older than %dd",
			result.RelationalDeleted, result.VectorDeleted, thresholdDays))

	return result, nil
}

/*
Reinforce appends a signed feedback delta to a record's reinforcement trail.
Deltas are clamped to [-1, +1] at write time; the composite score is not
recomputed here, scoring happens lazily at recall.
*/
func (m *Manager) Reinforce(ctx context.Context, vectorID string, delta float64) error {
	if delta > 1 {
		delta = 1
	} else if delta < -1 {
		delta = -1
	}

	err := errors.RetryWithBackoff(ctx, m.retry, func() error {
		if appendErr := m.gateway.AppendReinforcement(ctx, vectorID, delta); appendErr != nil {
			return errors.NewTransientStoreError("relational", "reinforce", appendErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.audit(ctx, "", "", "reinforce", "info",
		fmt.Sprintf("record %s reinforced by %+.2f", vectorID, delta))
	return nil
}

// CreateSession opens a session row and stamps the initial audit event.
func (m *Manager) CreateSession(ctx context.Context, userID, agent string) (string, error) {
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Agent:     agent,
		Status:    SessionActive,
		StartedAt: time.Now().UTC(),
	}

	err := errors.RetryWithBackoff(ctx, m.retry, func() error {
		if _, createErr := m.gateway.CreateSession(ctx, session); createErr != nil {
			return errors.NewTransientStoreError("relational", "create_session", createErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	m.audit(ctx, session.ID, userID, "session_started", "info",
		fmt.Sprintf("session opened for agent %q", agent))
	return session.ID, nil
}

// CloseSession finalizes a session row, drops its thread buffer, and stamps
// the closing audit event.
func (m *Manager) CloseSession(ctx context.Context, sessionID string, status SessionStatus) error {
	err := errors.RetryWithBackoff(ctx, m.retry, func() error {
		if closeErr := m.gateway.CloseSession(ctx, sessionID, status); closeErr != nil {
			return errors.NewTransientStoreError("relational", "close_session", closeErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.buffer.Drop(m.threadKey(sessionID))
	m.audit(ctx, sessionID, "", "session_closed", "info", string(status))
	return nil
}

// LogExecution records one specialist execution, best-effort.
func (m *Manager) LogExecution(ctx context.Context, row ExecutionLog) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if _, err := m.gateway.InsertExecution(ctx, row); err != nil {
		log.Warn("execution log failed", "session", row.SessionID, "error", err)
	}
}

// audit appends an event to the immutable trail, logging (but otherwise
// ignoring) failures: a broken audit sink must never break the operation.
func (m *Manager) audit(ctx context.Context, sessionID, userID, operation, severity, message string) {
	event := AuditEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Operation: operation,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := m.gateway.AppendAudit(ctx, event); err != nil {
		log.Warn("audit append failed", "operation", operation, "error", err)
	}
}
