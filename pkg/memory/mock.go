package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

/*
MockVectorStore is a process-local vector store for tests and demos. It does
real cosine similarity over stored embeddings, normalized into [0,1], and
honors namespace scoping exactly like the production client. Error fields let
tests force degraded paths.
*/
type MockVectorStore struct {
	mu      sync.RWMutex
	records map[string]Record

	StoreErr  error
	SearchErr error
	DeleteErr error
}

// NewMockVectorStore returns an empty in-memory vector store.
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{records: make(map[string]Record)}
}

// StoreRecord keeps the record in memory, assigning an id if absent.
func (s *MockVectorStore) StoreRecord(ctx context.Context, record Record) (string, error) {
	if s.StoreErr != nil {
		return "", s.StoreErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.ID] = record
	return record.ID, nil
}

// SearchSimilar ranks stored records in the query's namespace by cosine
// similarity, insertion order preserved for equal scores.
func (s *MockVectorStore) SearchSimilar(ctx context.Context, query VectorQuery) ([]Record, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Record
	for _, record := range s.records {
		if record.Namespace != query.Namespace {
			continue
		}
		if query.SessionID != "" && record.SessionID != query.SessionID {
			continue
		}
		if !matchesTags(record.Tags, query.Tags) {
			continue
		}
		record.Similarity = cosineSimilarity(query.Embedding, record.Embedding)
		results = append(results, record)
	}

	// Highest similarity first, like a real vector store.
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// DeleteOlderThan removes records in the namespace created before cutoff.
func (s *MockVectorStore) DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time, kind Kind) (int, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, record := range s.records {
		if record.Namespace != namespace || !record.CreatedAt.Before(cutoff) {
			continue
		}
		if kind != "" && record.Kind != kind {
			continue
		}
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MockVectorStore) Ping(ctx context.Context) error { return nil }

// Len reports how many records are stored, for test assertions.
func (s *MockVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesTags(recordTags, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	have := make(map[string]bool, len(recordTags))
	for _, tag := range recordTags {
		have[tag] = true
	}
	for _, tag := range wanted {
		if !have[tag] {
			return false
		}
	}
	return true
}

// cosineSimilarity maps the cosine of two vectors from [-1,1] into [0,1].
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return (dot/(math.Sqrt(normA)*math.Sqrt(normB)) + 1) / 2
}

/*
MockGateway is an in-memory persistence gateway sufficient for unit tests.
Error fields force individual operations to fail so degradation policy can be
asserted without a real database.
*/
type MockGateway struct {
	mu             sync.RWMutex
	sessions       map[string]Session
	memoryLogs     map[string]MemoryLog
	reinforcements map[string][]float64
	goals          []Goal
	beliefs        []Belief
	auditTrail     []AuditEvent
	executions     []ExecutionLog

	SessionErr error
	InsertErr  error
	GoalsErr   error
	BeliefsErr error
	SumsErr    error
}

// NewMockGateway returns an empty in-memory gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		sessions:       make(map[string]Session),
		memoryLogs:     make(map[string]MemoryLog),
		reinforcements: make(map[string][]float64),
	}
}

func (g *MockGateway) CreateSession(ctx context.Context, session Session) (string, error) {
	if g.SessionErr != nil {
		return "", g.SessionErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[session.ID] = session
	return session.ID, nil
}

func (g *MockGateway) CloseSession(ctx context.Context, sessionID string, status SessionStatus) error {
	if g.SessionErr != nil {
		return g.SessionErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	now := time.Now().UTC()
	session.Status = status
	session.EndedAt = &now
	g.sessions[sessionID] = session
	return nil
}

func (g *MockGateway) GetSession(ctx context.Context, sessionID string) (Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	session, ok := g.sessions[sessionID]
	if !ok {
		return Session{}, fmt.Errorf("session not found: %s", sessionID)
	}
	return session, nil
}

func (g *MockGateway) SweepIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := time.Now().UTC().Add(-idleFor)
	swept := 0
	for id, session := range g.sessions {
		if session.Status == SessionActive && session.StartedAt.Before(cutoff) {
			now := time.Now().UTC()
			session.Status = SessionTimedOut
			session.EndedAt = &now
			g.sessions[id] = session
			swept++
		}
	}
	return swept, nil
}

func (g *MockGateway) InsertMemoryLog(ctx context.Context, row MemoryLog) (string, error) {
	if g.InsertErr != nil {
		return "", g.InsertErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	g.memoryLogs[row.ID] = row
	return row.ID, nil
}

func (g *MockGateway) DeleteMemoryLogsBefore(ctx context.Context, userID string, cutoff time.Time, kind Kind) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	deleted := 0
	for id, row := range g.memoryLogs {
		if row.UserID != userID || !row.CreatedAt.Before(cutoff) {
			continue
		}
		if kind != "" && row.Kind != kind {
			continue
		}
		delete(g.memoryLogs, id)
		deleted++
	}
	return deleted, nil
}

func (g *MockGateway) AppendReinforcement(ctx context.Context, vectorID string, delta float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reinforcements[vectorID] = append(g.reinforcements[vectorID], delta)
	return nil
}

func (g *MockGateway) ReinforcementSums(ctx context.Context, vectorIDs []string) (map[string]float64, error) {
	if g.SumsErr != nil {
		return nil, g.SumsErr
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	sums := make(map[string]float64, len(vectorIDs))
	for _, id := range vectorIDs {
		var total float64
		for _, delta := range g.reinforcements[id] {
			total += delta
		}
		sums[id] = total
	}
	return sums, nil
}

func (g *MockGateway) ActiveGoals(ctx context.Context, userID, sessionID string) ([]Goal, error) {
	if g.GoalsErr != nil {
		return nil, g.GoalsErr
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Goal
	for _, goal := range g.goals {
		if goal.UserID == userID && goal.SessionID == sessionID && goal.Status == "active" {
			out = append(out, goal)
		}
	}
	return out, nil
}

func (g *MockGateway) Beliefs(ctx context.Context, userID, sessionID string) ([]Belief, error) {
	if g.BeliefsErr != nil {
		return nil, g.BeliefsErr
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Belief
	for _, belief := range g.beliefs {
		if belief.UserID == userID && belief.SessionID == sessionID {
			out = append(out, belief)
		}
	}
	return out, nil
}

func (g *MockGateway) AppendAudit(ctx context.Context, event AuditEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auditTrail = append(g.auditTrail, event)
	return nil
}

func (g *MockGateway) InsertExecution(ctx context.Context, row ExecutionLog) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	g.executions = append(g.executions, row)
	return row.ID, nil
}

func (g *MockGateway) Ping(ctx context.Context) error { return nil }

// AddGoal seeds a goal row for tests.
func (g *MockGateway) AddGoal(goal Goal) {
	g.mu.Lock()
	g.goals = append(g.goals, goal)
	g.mu.Unlock()
}

// AddBelief seeds a belief row for tests.
func (g *MockGateway) AddBelief(belief Belief) {
	g.mu.Lock()
	g.beliefs = append(g.beliefs, belief)
	g.mu.Unlock()
}

// AuditTrail returns a copy of the recorded audit events.
func (g *MockGateway) AuditTrail() []AuditEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]AuditEvent, len(g.auditTrail))
	copy(out, g.auditTrail)
	return out
}

// MemoryLogCount reports stored canonical rows, for test assertions.
func (g *MockGateway) MemoryLogCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.memoryLogs)
}

// Executions returns a copy of the recorded execution logs.
func (g *MockGateway) Executions() []ExecutionLog {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ExecutionLog, len(g.executions))
	copy(out, g.executions)
	return out
}
