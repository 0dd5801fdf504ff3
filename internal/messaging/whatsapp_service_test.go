package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/venturelaunch/angel/internal/models"
)

type stubWhatsAppSender struct {
	sent int
}

func (s *stubWhatsAppSender) SendMessage(ctx context.Context, to string, body string) error {
	s.sent++
	return nil
}

func TestWhatsAppSendMessageEmitsReceipt(t *testing.T) {
	sender := &stubWhatsAppSender{}
	svc := NewWhatsAppService(sender)

	if err := svc.SendMessage(context.Background(), "+1 (555) 123-4567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "15551234567" {
			t.Errorf("receipt to = %q, want 15551234567", receipt.To)
		}
		if receipt.Status != models.MessageStatusSent {
			t.Errorf("receipt status = %s, want sent", receipt.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no receipt emitted")
	}
}

func TestWhatsAppSendMessageWithFullReceiptBuffer(t *testing.T) {
	sender := &stubWhatsAppSender{}
	svc := NewWhatsAppService(sender)

	// Nothing drains the receipts channel here. Sends past the buffer
	// capacity must drop their receipt instead of blocking.
	total := DefaultChannelBufferSize + 2
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			if err := svc.SendMessage(context.Background(), "15551234567", "hello"); err != nil {
				t.Errorf("SendMessage %d failed: %v", i, err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SendMessage blocked on a full receipts channel")
	}

	if sender.sent != total {
		t.Errorf("sent %d messages, want %d", sender.sent, total)
	}
	buffered := len(svc.receipts)
	if buffered != DefaultChannelBufferSize {
		t.Errorf("buffered receipts = %d, want %d", buffered, DefaultChannelBufferSize)
	}
}
