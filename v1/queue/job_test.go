package queue

import (
	"testing"
	"time"
)

func TestJobFromRowDefaults(t *testing.T) {
	j := JobFromRow(map[string]any{})

	if j.ID != 0 {
		t.Fatalf("id: got %d", j.ID)
	}
	if j.Direction != DirectionWPToOdoo {
		t.Fatalf("direction: got %q", j.Direction)
	}
	if j.Action != ActionUpdate {
		t.Fatalf("action: got %q", j.Action)
	}
	if j.Priority != DefaultPriority {
		t.Fatalf("priority: got %d", j.Priority)
	}
	if j.Status != StatusPending {
		t.Fatalf("status: got %q", j.Status)
	}
	if j.Attempts != 0 {
		t.Fatalf("attempts: got %d", j.Attempts)
	}
	if j.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("max_attempts: got %d", j.MaxAttempts)
	}
	if !j.CreatedAt.IsZero() {
		t.Fatalf("created_at: got %v", j.CreatedAt)
	}
	if j.ScheduledAt != nil || j.ProcessedAt != nil {
		t.Fatal("optional timestamps must stay nil")
	}
}

func TestJobFromRowCoercesNumericStrings(t *testing.T) {
	j := JobFromRow(map[string]any{
		"id":           "42",
		"wp_id":        "7",
		"odoo_id":      "1001",
		"priority":     "2",
		"attempts":     "1",
		"max_attempts": "5",
	})
	if j.ID != 42 || j.WPID != 7 || j.OdooID != 1001 {
		t.Fatalf("id coercion: %d %d %d", j.ID, j.WPID, j.OdooID)
	}
	if j.Priority != 2 || j.Attempts != 1 || j.MaxAttempts != 5 {
		t.Fatalf("counter coercion: %d %d %d", j.Priority, j.Attempts, j.MaxAttempts)
	}
}

func TestJobFromRowToleratesGarbage(t *testing.T) {
	j := JobFromRow(map[string]any{
		"id":         "not-a-number",
		"priority":   "-3",
		"attempts":   -2,
		"status":     "",
		"created_at": "yesterday-ish",
		"payload":    "",
	})
	if j.ID != 0 {
		t.Fatalf("garbage id coerced to %d", j.ID)
	}
	if j.Priority != DefaultPriority {
		t.Fatalf("negative priority not defaulted: %d", j.Priority)
	}
	if j.Attempts != 0 {
		t.Fatalf("negative attempts not clamped: %d", j.Attempts)
	}
	if j.Status != StatusPending {
		t.Fatalf("empty status not defaulted: %q", j.Status)
	}
	if !j.CreatedAt.IsZero() {
		t.Fatalf("unparseable created_at: %v", j.CreatedAt)
	}
	if j.Payload != nil {
		t.Fatal("empty payload must decode to nil")
	}
}

func TestJobFromRowFullRow(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	j := JobFromRow(map[string]any{
		"id":             uint64(9),
		"correlation_id": "abc-123",
		"module":         "woocommerce",
		"direction":      "odoo_to_wp",
		"entity_type":    "product",
		"wp_id":          int64(12),
		"odoo_id":        int64(440),
		"action":         "delete",
		"payload":        []byte(`{"sku":"X"}`),
		"priority":       1,
		"status":         "processing",
		"attempts":       2,
		"max_attempts":   4,
		"error_message":  "timeout talking to odoo",
		"created_at":     created,
	})
	if j.Direction != DirectionOdooToWP || j.Action != ActionDelete || j.Status != StatusProcessing {
		t.Fatalf("enums: %q %q %q", j.Direction, j.Action, j.Status)
	}
	if j.CorrelationID != "abc-123" || j.Module != "woocommerce" || j.EntityType != "product" {
		t.Fatalf("identity fields: %+v", j)
	}
	if string(j.Payload) != `{"sku":"X"}` {
		t.Fatalf("payload: %q", j.Payload)
	}
	if !j.CreatedAt.Equal(created) {
		t.Fatalf("created_at: %v", j.CreatedAt)
	}
	if j.ErrorMessage != "timeout talking to odoo" {
		t.Fatalf("error_message: %q", j.ErrorMessage)
	}
}

func TestJobFromRowParsesTimeStrings(t *testing.T) {
	j := JobFromRow(map[string]any{
		"created_at":   "2024-05-01T10:00:00Z",
		"scheduled_at": "2024-05-01 11:30:00",
	})
	if j.CreatedAt.IsZero() {
		t.Fatal("RFC3339 created_at not parsed")
	}
	if j.ScheduledAt == nil || j.ScheduledAt.IsZero() {
		t.Fatal("datetime scheduled_at not parsed")
	}
}
