package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTP delivers notifications as outbound email. The recipient is resolved
// at construction time; the breaker only ever supplies subject and body.
type SMTP struct {
	addr string
	auth smtp.Auth
	from string
	to   []string

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP returns an SMTP notifier sending through addr (host:port).
func NewSMTP(addr string, auth smtp.Auth, from string, to ...string) *SMTP {
	return &SMTP{addr: addr, auth: auth, from: from, to: to, send: smtp.SendMail}
}

// Notify implements Notifier.
func (s *SMTP) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	return s.send(s.addr, s.auth, s.from, s.to, []byte(msg.String()))
}
