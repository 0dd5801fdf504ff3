// SQLite-backed store for sessions, answers, flow state, and declarations.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/venturelaunch/angel/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSession stores or replaces a session.
func (s *SQLiteStore) SaveSession(session models.Session) error {
	query := `
		INSERT OR REPLACE INTO sessions (id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, session.ID, session.Recipient, session.Name, session.Status,
		session.CurrentPhase, session.ActiveQuestion, session.EnrolledAt, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", session.ID, "status", session.Status)
	return nil
}

func (s *SQLiteStore) scanSession(row *sql.Row) (*models.Session, error) {
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
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	session, err := s.scanSession(row)
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return session, nil
}

// GetSessionByRecipient retrieves a session by channel address, or nil.
func (s *SQLiteStore) GetSessionByRecipient(recipient string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions WHERE recipient = ? ORDER BY created_at DESC LIMIT 1`, recipient)
	session, err := s.scanSession(row)
	if err != nil {
		slog.Error("SQLiteStore GetSessionByRecipient failed", "error", err, "recipient", recipient)
		return nil, fmt.Errorf("failed to get session for recipient: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT id, recipient, name, status, current_phase, active_question, enrolled_at, created_at, updated_at
		FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.Recipient, &session.Name, &session.Status,
			&session.CurrentPhase, &session.ActiveQuestion, &session.EnrolledAt,
			&session.CreatedAt, &session.UpdatedAt); err != nil {
			slog.Error("SQLiteStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

// AddAnswer appends an answer record for its session.
func (s *SQLiteStore) AddAnswer(a models.Answer) error {
	_, err := s.db.Exec(`INSERT INTO answers (id, session_id, question, modality, body, answered_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.Question, a.Modality, a.Body, a.AnsweredAt)
	if err != nil {
		slog.Error("SQLiteStore AddAnswer failed", "error", err, "sessionID", a.SessionID)
		return fmt.Errorf("failed to insert answer for session %s: %w", a.SessionID, err)
	}
	slog.Debug("SQLiteStore AddAnswer succeeded", "sessionID", a.SessionID, "modality", a.Modality)
	return nil
}

// GetAnswers returns the answers recorded for a session, in answer order.
func (s *SQLiteStore) GetAnswers(sessionID string) ([]models.Answer, error) {
	rows, err := s.db.Query(`SELECT id, session_id, question, modality, body, answered_at
		FROM answers WHERE session_id = ? ORDER BY answered_at`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetAnswers query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Question, &a.Modality, &a.Body, &a.AnsweredAt); err != nil {
			slog.Error("SQLiteStore GetAnswers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetAnswers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate answer rows: %w", err)
	}
	return answers, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *SQLiteStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT OR REPLACE INTO flow_states (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var stateDataJSON string
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		stateDataJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.SessionID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "sessionID", state.SessionID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves flow state for a session, or nil if absent.
func (s *SQLiteStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	query := `SELECT session_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE session_id = ? AND flow_type = ?`

	var state models.FlowState
	var stateDataJSON string

	err := s.db.QueryRow(query, sessionID, flowType).Scan(
		&state.SessionID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetFlowState not found", "sessionID", sessionID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, err
	}

	if stateDataJSON != "" {
		state.StateData = make(map[string]string)
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			slog.Error("SQLiteStore GetFlowState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			// Continue with empty map rather than failing
			state.StateData = make(map[string]string)
		}
	}

	slog.Debug("SQLiteStore GetFlowState found", "sessionID", sessionID, "flowType", flowType, "state", state.CurrentState)
	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *SQLiteStore) DeleteFlowState(sessionID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = ? AND flow_type = ?`, sessionID, flowType)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "sessionID", sessionID, "flowType", flowType)
	return nil
}

// AddDeclaration records a completion declaration. List fields are stored as
// JSON text columns.
func (s *SQLiteStore) AddDeclaration(d models.CompletionDeclaration) error {
	decisions, actions, documents, nextSteps, err := marshalDeclarationLists(d)
	if err != nil {
		slog.Error("SQLiteStore AddDeclaration marshal failed", "error", err, "sessionID", d.SessionID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO declarations (id, session_id, task_id, summary, decisions, actions, documents, next_steps, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.TaskID, d.Summary, decisions, actions, documents, nextSteps, d.CompletedAt)
	if err != nil {
		slog.Error("SQLiteStore AddDeclaration failed", "error", err, "sessionID", d.SessionID, "taskID", d.TaskID)
		return fmt.Errorf("failed to insert declaration for task %s: %w", d.TaskID, err)
	}
	slog.Debug("SQLiteStore AddDeclaration succeeded", "sessionID", d.SessionID, "taskID", d.TaskID)
	return nil
}

// GetDeclarations returns the declarations recorded for a session.
func (s *SQLiteStore) GetDeclarations(sessionID string) ([]models.CompletionDeclaration, error) {
	rows, err := s.db.Query(`SELECT id, session_id, task_id, summary, decisions, actions, documents, next_steps, completed_at
		FROM declarations WHERE session_id = ? ORDER BY completed_at`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetDeclarations query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	var declarations []models.CompletionDeclaration
	for rows.Next() {
		var d models.CompletionDeclaration
		var decisions, actions, documents, nextSteps string
		if err := rows.Scan(&d.ID, &d.SessionID, &d.TaskID, &d.Summary,
			&decisions, &actions, &documents, &nextSteps, &d.CompletedAt); err != nil {
			slog.Error("SQLiteStore GetDeclarations scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan declaration row: %w", err)
		}
		unmarshalDeclarationLists(&d, decisions, actions, documents, nextSteps)
		declarations = append(declarations, d)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetDeclarations rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate declaration rows: %w", err)
	}
	return declarations, nil
}

// AddReceipt records a delivery receipt.
func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES (?, ?, ?)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts`)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("SQLiteStore GetReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetReceipts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// AddResponse records an incoming response.
func (s *SQLiteStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES (?, ?, ?)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns all recorded responses.
func (s *SQLiteStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("SQLiteStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("SQLiteStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
