// Package memory implements the unified memory manager: a bounded per-session
// thread buffer, a semantic vector store with composite relevance scoring, and
// an audited relational persistence gateway, all behind a single façade.
package memory

import (
	"context"
	"fmt"
	"time"
)

// Kind classifies a stored memory record.
type Kind string

const (
	KindShortTerm  Kind = "short_term"
	KindLongTerm   Kind = "long_term"
	KindEpisodic   Kind = "episodic"
	KindReflection Kind = "reflection"
)

// Role identifies the author of a thread entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionStatus is the lifecycle state of a session row.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionTimedOut  SessionStatus = "timed_out"
)

/*
Namespace is the isolation key scoping every memory read and write. The base
key is {tenant}:{agent}; thread and user qualifiers narrow it further. No
operation may touch a namespace it was not explicitly given.
*/
type Namespace struct {
	Tenant string
	Agent  string
}

// Key returns the base namespace key.
func (n Namespace) Key() string {
	return fmt.Sprintf("%s:%s", n.Tenant, n.Agent)
}

// UserKey returns the namespace qualified by a user id.
func (n Namespace) UserKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", n.Key(), userID)
}

// ThreadKey returns the namespace qualified by a session id.
func (n Namespace) ThreadKey(sessionID string) string {
	return fmt.Sprintf("%s:thread:%s", n.Key(), sessionID)
}

// ThreadEntry is one turn of short-term context inside the thread buffer.
type ThreadEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

/*
Record is one semantic unit held by the vector store. Similarity is filled in
by the store on search; Reinforcement is the running sum of feedback deltas
and is joined in from the gateway at recall time. CompositeScore is computed
lazily by the scorer.
*/
type Record struct {
	ID             string    `json:"id"`
	Namespace      string    `json:"namespace"`
	SessionID      string    `json:"session_id,omitempty"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Kind           Kind      `json:"kind"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Similarity     float64   `json:"similarity"`
	Reinforcement  float64   `json:"reinforcement"`
	CompositeScore float64   `json:"composite_score"`
}

// Session identifies one continuous interaction with an agent.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Agent     string        `json:"agent"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Goal is an active objective tracked by the persistence gateway.
type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Belief is a durable assertion about the user or the world.
type Belief struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Statement  string    `json:"statement"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEvent is an immutable log line for a memory operation. Append-only.
type AuditEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Operation string    `json:"operation"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryLog is the canonical relational row produced by every write.
type MemoryLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Agent     string    `json:"agent"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	VectorID  string    `json:"vector_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionLog records one specialist execution for audit purposes.
type ExecutionLog struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Agent       string    `json:"agent"`
	ExecutionID string    `json:"execution_id"`
	Input       string    `json:"input"`
	Output      string    `json:"output"`
	Status      string    `json:"status"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

/*
Envelope is the fixed payload shape every write must conform to. Malformed
envelopes are rejected before any store is touched.
*/
type Envelope struct {
	Timestamp string         `json:"timestamp"`
	Agent     string         `json:"agent"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Content   map[string]any `json:"content"`
}

// Context is the aggregate handed to specialists and the router each turn.
type Context struct {
	RecentMessages    []ThreadEntry `json:"recent_messages"`
	RetrievedMemories []Record      `json:"retrieved_memories"`
	Goals             []Goal        `json:"goals"`
	Beliefs           []Belief      `json:"beliefs"`
	ConfidenceScore   float64       `json:"confidence_score"`
}

// WriteOutcome is the typed result of a dual-write, so callers can assert on
// the degradation policy instead of inferring it from logs.
type WriteOutcome int

const (
	WriteFailed WriteOutcome = iota
	WriteRelationalOnly
	WriteFull
)

func (o WriteOutcome) String() string {
	switch o {
	case WriteFull:
		return "full"
	case WriteRelationalOnly:
		return "relational_only"
	default:
		return "failed"
	}
}

// WriteReceipt confirms a write with the ids it produced.
type WriteReceipt struct {
	Outcome      WriteOutcome `json:"outcome"`
	RelationalID string       `json:"relational_id"`
	VectorID     string       `json:"vector_id,omitempty"`
}

// DecayResult reports how many records a decay pass removed.
type DecayResult struct {
	RelationalDeleted int `json:"relational_deleted"`
	VectorDeleted     int `json:"vector_deleted"`
}

// VectorQuery scopes a similarity search to one namespace.
type VectorQuery struct {
	Namespace string
	SessionID string
	Embedding []float32
	Tags      []string
	Limit     int
}

// VectorStore provides semantic search over memory records.
type VectorStore interface {
	StoreRecord(ctx context.Context, record Record) (string, error)
	SearchSimilar(ctx context.Context, query VectorQuery) ([]Record, error)
	DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time, kind Kind) (int, error)
	Ping(ctx context.Context) error
}

// Gateway is the relational source of truth for sessions, memory logs,
// reinforcement trails, goals, beliefs, executions and the audit trail.
type Gateway interface {
	CreateSession(ctx context.Context, session Session) (string, error)
	CloseSession(ctx context.Context, sessionID string, status SessionStatus) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	SweepIdle(ctx context.Context, idleFor time.Duration) (int, error)

	InsertMemoryLog(ctx context.Context, row MemoryLog) (string, error)
	DeleteMemoryLogsBefore(ctx context.Context, userID string, cutoff time.Time, kind Kind) (int, error)

	AppendReinforcement(ctx context.Context, vectorID string, delta float64) error
	ReinforcementSums(ctx context.Context, vectorIDs []string) (map[string]float64, error)

	ActiveGoals(ctx context.Context, userID, sessionID string) ([]Goal, error)
	Beliefs(ctx context.Context, userID, sessionID string) ([]Belief, error)

	AppendAudit(ctx context.Context, event AuditEvent) error
	InsertExecution(ctx context.Context, row ExecutionLog) (string, error)

	Ping(ctx context.Context) error
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
