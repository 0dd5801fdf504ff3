// PostgreSQL-backed store for sessions, answers, flow state, and declarations.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/venturelaunch/angel/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveSession stores or replaces a session.
func (s *PostgresStore) SaveSession(session models.Session) error {
	query := `
		INSERT INTO sessions (id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			recipient = EXCLUDED.recipient,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			current_phase = EXCLUDED.current_phase,
			active_question = EXCLUDED.active_question,
			enrolled_at = EXCLUDED.enrolled_at,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query, session.ID, session.Recipient, session.Name, session.Status,
		session.CurrentPhase, session.ActiveQuestion, session.EnrolledAt, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", session.ID, "status", session.Status)
	return nil
}

func (s *PostgresStore) scanSession(row *sql.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(&session.ID, &session.Recipient, &session.Name, &session.Status,
		&session.CurrentPhase, &session.ActiveQuestion, &session.EnrolledAt,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession retrieves a session by ID, or nil if absent.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions WHERE id = $1`, id)
	session, err := s.scanSession(row)
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return session, nil
}

// GetSessionByRecipient retrieves a session by channel address, or nil.
func (s *PostgresStore) GetSessionByRecipient(recipient string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions WHERE recipient = $1 ORDER BY created_at DESC LIMIT 1`, recipient)
	session, err := s.scanSession(row)
	if err != nil {
		slog.Error("PostgresStore GetSessionByRecipient failed", "error", err, "recipient", recipient)
		return nil, fmt.Errorf("failed to get session for recipient: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.Recipient, &session.Name, &session.Status,
			&session.CurrentPhase, &session.ActiveQuestion, &session.EnrolledAt,
			&session.CreatedAt, &session.UpdatedAt); err != nil {
			slog.Error("PostgresStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}

// AddAnswer appends an answer record for its session.
func (s *PostgresStore) AddAnswer(a models.Answer) error {
	_, err := s.db.Exec(`INSERT INTO answers (id, session_id, question, modality, body, answered_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.SessionID, a.Question, a.Modality, a.Body, a.AnsweredAt)
	if err != nil {
		slog.Error("PostgresStore AddAnswer failed", "error", err, "sessionID", a.SessionID)
		return fmt.Errorf("failed to insert answer for session %s: %w", a.SessionID, err)
	}
	return nil
}

// GetAnswers returns the answers recorded for a session, in answer order.
func (s *PostgresStore) GetAnswers(sessionID string) ([]models.Answer, error) {
	rows, err := s.db.Query(`SELECT id, session_id, question, modality, body, answered_at
		FROM answers WHERE session_id = $1 ORDER BY answered_at`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetAnswers query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Question, &a.Modality, &a.Body, &a.AnsweredAt); err != nil {
			slog.Error("PostgresStore GetAnswers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetAnswers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate answer rows: %w", err)
	}
	return answers, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *PostgresStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT INTO flow_states (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, flow_type)
		DO UPDATE SET current_state = EXCLUDED.current_state,
			state_data = EXCLUDED.state_data,
			updated_at = EXCLUDED.updated_at`

	var stateDataJSON string
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		stateDataJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.SessionID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("PostgresStore SaveFlowState succeeded", "sessionID", state.SessionID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves flow state for a session, or nil if absent.
func (s *PostgresStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	query := `SELECT session_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE session_id = $1 AND flow_type = $2`

	var state models.FlowState
	var stateDataJSON string

	err := s.db.QueryRow(query, sessionID, flowType).Scan(
		&state.SessionID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetFlowState not found", "sessionID", sessionID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, err
	}

	if stateDataJSON != "" {
		state.StateData = make(map[string]string)
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			slog.Error("PostgresStore GetFlowState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			state.StateData = make(map[string]string)
		}
	}

	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *PostgresStore) DeleteFlowState(sessionID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = $1 AND flow_type = $2`, sessionID, flowType)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}
	return nil
}

// AddDeclaration records a completion declaration. List fields are stored as
// JSON text columns.
func (s *PostgresStore) AddDeclaration(d models.CompletionDeclaration) error {
	decisions, actions, documents, nextSteps, err := marshalDeclarationLists(d)
	if err != nil {
		slog.Error("PostgresStore AddDeclaration marshal failed", "error", err, "sessionID", d.SessionID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO declarations (id, session_id, task_id, summary, decisions, actions, documents, next_steps, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.SessionID, d.TaskID, d.Summary, decisions, actions, documents, nextSteps, d.CompletedAt)
	if err != nil {
		slog.Error("PostgresStore AddDeclaration failed", "error", err, "sessionID", d.SessionID, "taskID", d.TaskID)
		return fmt.Errorf("failed to insert declaration for task %s: %w", d.TaskID, err)
	}
	return nil
}

// GetDeclarations returns the declarations recorded for a session.
func (s *PostgresStore) GetDeclarations(sessionID string) ([]models.CompletionDeclaration, error) {
	rows, err := s.db.Query(`SELECT id, session_id, task_id, summary, decisions, actions, documents, next_steps, completed_at
		FROM declarations WHERE session_id = $1 ORDER BY completed_at`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetDeclarations query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	var declarations []models.CompletionDeclaration
	for rows.Next() {
		var d models.CompletionDeclaration
		var decisions, actions, documents, nextSteps string
		if err := rows.Scan(&d.ID, &d.SessionID, &d.TaskID, &d.Summary,
			&decisions, &actions, &documents, &nextSteps, &d.CompletedAt); err != nil {
			slog.Error("PostgresStore GetDeclarations scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan declaration row: %w", err)
		}
		unmarshalDeclarationLists(&d, decisions, actions, documents, nextSteps)
		declarations = append(declarations, d)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetDeclarations rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate declaration rows: %w", err)
	}
	return declarations, nil
}

// AddReceipt records a delivery receipt.
func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts`)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("PostgresStore GetReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetReceipts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// AddResponse records an incoming response.
func (s *PostgresStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES ($1, $2, $3)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns all recorded responses.
func (s *PostgresStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("PostgresStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("PostgresStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
