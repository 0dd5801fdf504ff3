package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venturelaunch/angel/internal/models"
)

// mockService implements Service for tests and records sent messages.
type mockService struct {
	sent      []struct{ To, Body string }
	sendErr   error
	receipts  chan models.Receipt
	responses chan models.Response
}

func newMockService() *mockService {
	return &mockService{
		receipts:  make(chan models.Receipt, 10),
		responses: make(chan models.Response, 10),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

func (m *mockService) SendMessage(ctx context.Context, to, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, struct{ To, Body string }{to, body})
	return nil
}

func (m *mockService) Start(ctx context.Context) error { return nil }
func (m *mockService) Stop() error                     { return nil }

func (m *mockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *mockService) Responses() <-chan models.Response { return m.responses }

func TestResponseHandlerHookRouting(t *testing.T) {
	svc := newMockService()
	rh := NewResponseHandler(svc)

	var gotFrom, gotBody string
	err := rh.RegisterHook("+1 (555) 123-4567", func(ctx context.Context, from, body string, ts int64) (bool, error) {
		gotFrom, gotBody = from, body
		return true, nil
	})
	if err != nil {
		t.Fatalf("RegisterHook() error = %v", err)
	}

	if !rh.IsHookRegistered("15551234567") {
		t.Error("IsHookRegistered() = false after registration with formatted number")
	}

	err = rh.ProcessResponse(context.Background(), models.Response{From: "15551234567", Body: "yes", Time: time.Now().Unix()})
	if err != nil {
		t.Fatalf("ProcessResponse() error = %v", err)
	}

	if gotFrom != "15551234567" || gotBody != "yes" {
		t.Errorf("hook received (%q, %q), want canonical number and body", gotFrom, gotBody)
	}
	if len(svc.sent) != 0 {
		t.Errorf("handled response should not trigger default message, sent %d", len(svc.sent))
	}
}

func TestResponseHandlerDefaultMessage(t *testing.T) {
	svc := newMockService()
	rh := NewResponseHandler(svc)

	err := rh.ProcessResponse(context.Background(), models.Response{From: "15551234567", Body: "hello"})
	if err != nil {
		t.Fatalf("ProcessResponse() error = %v", err)
	}

	if len(svc.sent) != 1 {
		t.Fatalf("unhandled response should trigger default message, sent %d", len(svc.sent))
	}
	if svc.sent[0].To != "15551234567" {
		t.Errorf("default message sent to %q, want canonical sender", svc.sent[0].To)
	}
}

func TestResponseHandlerHookError(t *testing.T) {
	svc := newMockService()
	rh := NewResponseHandler(svc)

	rh.RegisterHook("15551234567", func(ctx context.Context, from, body string, ts int64) (bool, error) {
		return false, errors.New("boom")
	})

	err := rh.ProcessResponse(context.Background(), models.Response{From: "15551234567", Body: "hello"})
	if err == nil {
		t.Fatal("ProcessResponse() error = nil, want hook failure")
	}
	// Error path still notifies the participant.
	if len(svc.sent) != 1 {
		t.Errorf("hook failure should send error message, sent %d", len(svc.sent))
	}
}

func TestResponseHandlerUnregister(t *testing.T) {
	svc := newMockService()
	rh := NewResponseHandler(svc)

	rh.RegisterHook("15551234567", func(ctx context.Context, from, body string, ts int64) (bool, error) {
		return true, nil
	})
	if err := rh.UnregisterHook("15551234567"); err != nil {
		t.Fatalf("UnregisterHook() error = %v", err)
	}
	if rh.IsHookRegistered("15551234567") {
		t.Error("IsHookRegistered() = true after unregistration")
	}
}

func TestResponseHandlerInvalidSender(t *testing.T) {
	svc := newMockService()
	rh := NewResponseHandler(svc)

	if err := rh.ProcessResponse(context.Background(), models.Response{From: "abc", Body: "hi"}); err == nil {
		t.Error("ProcessResponse() error = nil, want validation error for non-numeric sender")
	}
	if err := rh.RegisterHook("", nil); err == nil {
		t.Error("RegisterHook() error = nil, want validation error for empty recipient")
	}
}
