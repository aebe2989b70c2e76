package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (r *recordingNotifier) Notify(ctx context.Context, subject, body string) error {
	r.mu.Lock()
	r.subjects = append(r.subjects, subject)
	r.mu.Unlock()
	return r.err
}

func TestMultiFansOutToAllTransports(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	m := NewMulti(a, b)

	if err := m.Notify(context.Background(), "Circuit breaker opened: odoo", "down"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	for i, r := range []*recordingNotifier{a, b} {
		if len(r.subjects) != 1 {
			t.Fatalf("transport %d received %d messages", i, len(r.subjects))
		}
	}
}

func TestMultiReturnsFirstError(t *testing.T) {
	boom := errors.New("smtp down")
	a := &recordingNotifier{err: boom}
	b := &recordingNotifier{}
	m := NewMulti(a, b)

	if err := m.Notify(context.Background(), "s", "b"); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	// The healthy transport still received the message.
	if len(b.subjects) != 1 {
		t.Fatalf("healthy transport received %d messages", len(b.subjects))
	}
}

func TestFuncAdapter(t *testing.T) {
	var got string
	n := Func(func(ctx context.Context, subject, body string) error {
		got = subject
		return nil
	})
	if err := n.Notify(context.Background(), "s", "b"); err != nil || got != "s" {
		t.Fatalf("func adapter: got %q err %v", got, err)
	}
}

func TestSMTPBuildsMessage(t *testing.T) {
	var sentTo []string
	var sentMsg string
	n := NewSMTP("mail.example.com:587", nil, "syncgate@example.com", "ops@example.com")
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "mail.example.com:587" || from != "syncgate@example.com" {
			t.Fatalf("unexpected envelope: %s %s", addr, from)
		}
		sentTo = to
		sentMsg = string(msg)
		return nil
	}

	err := n.Notify(context.Background(), "Circuit breaker opened: odoo", "paused until recovery")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sentTo) != 1 || sentTo[0] != "ops@example.com" {
		t.Fatalf("recipients: %v", sentTo)
	}
	if !strings.Contains(sentMsg, "Subject: Circuit breaker opened: odoo\r\n") {
		t.Fatalf("subject header missing:\n%s", sentMsg)
	}
	if !strings.Contains(sentMsg, "\r\n\r\npaused until recovery") {
		t.Fatalf("body missing:\n%s", sentMsg)
	}
}

func TestSMTPHonorsCancelledContext(t *testing.T) {
	n := NewSMTP("mail.example.com:587", nil, "a@b.c", "d@e.f")
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called with a cancelled context")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Notify(ctx, "s", "b"); err == nil {
		t.Fatal("expected context error")
	}
}
