package notify

import (
	"context"
	"encoding/json"

	nats "github.com/nats-io/nats.go"
)

// Message is the wire form a bus transport publishes.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NATS publishes notifications on a NATS subject so any interested operator
// tooling can subscribe.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS returns a NATS notifier using the provided connection.
func NewNATS(conn *nats.Conn, subject string) *NATS {
	return &NATS{conn: conn, subject: subject}
}

// Notify implements Notifier.
func (n *NATS) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Message{Subject: subject, Body: body})
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return err
	}
	return n.conn.FlushWithContext(ctx)
}
