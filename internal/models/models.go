// Package models defines the core data structures for Angel.
//
// It includes types for questions, input modalities, onboarding sessions, and
// the answer records exchanged with delivery channels, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Modality defines which input widget family is presented for a question.
type Modality string

const (
	// ModalityFreeText presents a free-form text input.
	ModalityFreeText Modality = "free_text"
	// ModalityBinaryChoice presents a yes/no selection.
	ModalityBinaryChoice Modality = "binary_choice"
	// ModalityMultipleChoice presents an ordered list of selectable options.
	ModalityMultipleChoice Modality = "multiple_choice"
	// ModalitySkillRating presents the fixed multi-skill rating grid.
	ModalitySkillRating Modality = "skill_rating"
)

// Validation constants for input validation
const (
	// MaxQuestionLength defines the maximum allowed length for question text
	MaxQuestionLength = 4096
	// MaxAnswerLength defines the maximum allowed length for a submitted answer
	MaxAnswerLength = 4096
	// MaxOptionLength defines the maximum allowed length for a single choice option
	MaxOptionLength = 200
	// MinChoiceOptionsCount defines the minimum number of options for a choice modality
	MinChoiceOptionsCount = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptySession     = errors.New("session ID cannot be empty")
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrInvalidModality  = errors.New("invalid input modality")
	ErrEmptyQuestion    = errors.New("question text cannot be empty")
	ErrQuestionTooLong  = errors.New("question text exceeds maximum length")
	ErrMissingOptions   = errors.New("options are required for choice modalities")
	ErrEmptyOption      = errors.New("choice option cannot be empty")
	ErrOptionTooLong    = errors.New("choice option exceeds maximum length")
	ErrAnswerTooLong    = errors.New("answer exceeds maximum length")
	ErrLockedItem       = errors.New("navigation item is locked")
	ErrUnknownItem      = errors.New("navigation item not found")
	ErrIncompleteRating = errors.New("all skills must be rated before submission")
	ErrRatingOutOfRange = errors.New("skill rating must be between 1 and 5")
	ErrEmptySummary     = errors.New("completion summary cannot be blank")
	ErrMultipleCurrent  = errors.New("more than one navigation item is current")
)

// IsValidModality checks if the given modality is supported.
func IsValidModality(m Modality) bool {
	switch m {
	case ModalityFreeText, ModalityBinaryChoice, ModalityMultipleChoice, ModalitySkillRating:
		return true
	default:
		return false
	}
}

// ModalityDecision is the result of classifying a question's text.
// Options is non-empty only for the choice modalities and preserves
// presentation order.
type ModalityDecision struct {
	Modality Modality `json:"modality"`
	Options  []string `json:"options,omitempty"`
}

// Validate performs structural validation on a ModalityDecision.
func (d *ModalityDecision) Validate() error {
	if !IsValidModality(d.Modality) {
		return ErrInvalidModality
	}
	switch d.Modality {
	case ModalityBinaryChoice, ModalityMultipleChoice:
		if len(d.Options) < MinChoiceOptionsCount {
			return ErrMissingOptions
		}
		for _, opt := range d.Options {
			if opt == "" {
				return ErrEmptyOption
			}
			if len(opt) > MaxOptionLength {
				return ErrOptionTooLong
			}
		}
	case ModalityFreeText, ModalitySkillRating:
		// No options are derived for these modalities.
	}
	return nil
}

// Question represents the current question posed to a session. The text is the
// only semantic content; the modality decision is recomputed whenever the text
// changes.
type Question struct {
	SessionID string           `json:"session_id"`
	Text      string           `json:"text"`
	Decision  ModalityDecision `json:"decision"`
	AskedAt   time.Time        `json:"asked_at"`
}

// Validate checks a Question for structural problems before delivery.
func (q *Question) Validate() error {
	if q.SessionID == "" {
		return ErrEmptySession
	}
	if q.Text == "" {
		return ErrEmptyQuestion
	}
	if len(q.Text) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	return q.Decision.Validate()
}

// SessionStatus represents the lifecycle status of an onboarding session.
type SessionStatus string

const (
	// SessionStatusActive indicates the session is actively progressing.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusPaused indicates the session is temporarily paused.
	SessionStatusPaused SessionStatus = "paused"
	// SessionStatusCompleted indicates the session finished the pipeline.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusAbandoned indicates the session was abandoned.
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// IsValidSessionStatus checks if the given session status is valid.
func IsValidSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionStatusActive, SessionStatusPaused, SessionStatusCompleted, SessionStatusAbandoned:
		return true
	default:
		return false
	}
}

// Session represents one user's journey through the onboarding pipeline.
type Session struct {
	ID             string        `json:"id"`
	Recipient      string        `json:"recipient"` // channel address (phone number)
	Name           string        `json:"name,omitempty"`
	Status         SessionStatus `json:"status"`
	CurrentPhase   PhaseID       `json:"current_phase"`
	ActiveQuestion string        `json:"active_question,omitempty"`
	EnrolledAt     time.Time     `json:"enrolled_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Answer represents a submitted answer for a question. For choice modalities
// the body is the literal option string; for skill ratings it is the
// comma-joined ordered rating list.
type Answer struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Modality   Modality  `json:"modality"`
	Body       string    `json:"body"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Validate checks an Answer before it is recorded.
func (a *Answer) Validate() error {
	if a.SessionID == "" {
		return ErrEmptySession
	}
	if len(a.Body) > MaxAnswerLength {
		return ErrAnswerTooLong
	}
	if !IsValidModality(a.Modality) {
		return ErrInvalidModality
	}
	return nil
}

// EnrollmentRequest represents the payload for enrolling a new session.
type EnrollmentRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Name      string `json:"name,omitempty"`
}

// Validate validates an EnrollmentRequest.
func (r *EnrollmentRequest) Validate() error {
	if r.Recipient == "" {
		return ErrEmptyRecipient
	}
	return nil
}

// AnswerRequest represents the payload for submitting an answer over the API.
type AnswerRequest struct {
	Body string `json:"body" validate:"required"`
}

// MessageStatus represents the delivery status of an outgoing message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records a delivery status event for an outgoing message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming message from a session participant.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}
