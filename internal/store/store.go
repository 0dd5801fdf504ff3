// Package store provides storage backends for Angel.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL implementations for persistent session, answer, and flow state
// storage.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/venturelaunch/angel/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string (file path for SQLite)
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value forms; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// Store defines the persistence interface shared by all backends.
type Store interface {
	// Session lifecycle
	SaveSession(s models.Session) error
	GetSession(id string) (*models.Session, error)
	GetSessionByRecipient(recipient string) (*models.Session, error)
	ListSessions() ([]models.Session, error)

	// Answer records
	AddAnswer(a models.Answer) error
	GetAnswers(sessionID string) ([]models.Answer, error)

	// Flow state
	SaveFlowState(state models.FlowState) error
	GetFlowState(sessionID, flowType string) (*models.FlowState, error)
	DeleteFlowState(sessionID, flowType string) error

	// Completion declarations
	AddDeclaration(d models.CompletionDeclaration) error
	GetDeclarations(sessionID string) ([]models.CompletionDeclaration, error)

	// Delivery bookkeeping
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)
	AddResponse(r models.Response) error
	GetResponses() ([]models.Response, error)

	Close() error
}

// InMemoryStore is a simple in-memory store used by tests and local runs.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]models.Session
	answers      map[string][]models.Answer
	flowStates   map[string]models.FlowState
	declarations map[string][]models.CompletionDeclaration
	receipts     []models.Receipt
	responses    []models.Response
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:     make(map[string]models.Session),
		answers:      make(map[string][]models.Answer),
		flowStates:   make(map[string]models.FlowState),
		declarations: make(map[string][]models.CompletionDeclaration),
	}
}

// flowStateKey builds the composite map key for flow states.
func flowStateKey(sessionID, flowType string) string {
	return sessionID + "|" + flowType
}

// SaveSession stores or replaces a session.
func (s *InMemoryStore) SaveSession(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// GetSession retrieves a session by ID, or nil if absent.
func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// GetSessionByRecipient retrieves a session by channel address, or nil.
func (s *InMemoryStore) GetSessionByRecipient(recipient string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.Recipient == recipient {
			found := session
			return &found, nil
		}
	}
	return nil, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// AddAnswer appends an answer record for its session.
func (s *InMemoryStore) AddAnswer(a models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[a.SessionID] = append(s.answers[a.SessionID], a)
	return nil
}

// GetAnswers returns the answers recorded for a session, in insertion order.
func (s *InMemoryStore) GetAnswers(sessionID string) ([]models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Answer(nil), s.answers[sessionID]...), nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[flowStateKey(state.SessionID, state.FlowType)] = state
	return nil
}

// GetFlowState retrieves flow state for a session, or nil if absent.
func (s *InMemoryStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[flowStateKey(sessionID, flowType)]
	if !ok {
		return nil, nil
	}
	// Copy the map so callers cannot mutate stored state in place.
	copied := state
	if state.StateData != nil {
		copied.StateData = make(map[string]string, len(state.StateData))
		for k, v := range state.StateData {
			copied.StateData[k] = v
		}
	}
	return &copied, nil
}

// DeleteFlowState removes flow state for a session.
func (s *InMemoryStore) DeleteFlowState(sessionID, flowType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, flowStateKey(sessionID, flowType))
	return nil
}

// AddDeclaration appends a completion declaration for its session.
func (s *InMemoryStore) AddDeclaration(d models.CompletionDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declarations[d.SessionID] = append(s.declarations[d.SessionID], d)
	return nil
}

// GetDeclarations returns the declarations recorded for a session.
func (s *InMemoryStore) GetDeclarations(sessionID string) ([]models.CompletionDeclaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CompletionDeclaration(nil), s.declarations[sessionID]...), nil
}

// AddReceipt records a delivery receipt.
func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Receipt(nil), s.receipts...), nil
}

// AddResponse records an incoming response.
func (s *InMemoryStore) AddResponse(r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

// GetResponses returns all recorded responses.
func (s *InMemoryStore) GetResponses() ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Response(nil), s.responses...), nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
