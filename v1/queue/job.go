package queue

import (
	"strconv"
	"time"
)

// Direction tells which side of the integration originated the job.
type Direction string

const (
	DirectionWPToOdoo Direction = "wp_to_odoo"
	DirectionOdooToWP Direction = "odoo_to_wp"
)

// Action is the remote operation the job carries.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Status is the lifecycle state of a job row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

const (
	// DefaultPriority is the urgency assigned when the caller does not care.
	// Lower values drain first.
	DefaultPriority = 5
	// DefaultMaxAttempts bounds retries; exhaustion is acted on by the
	// worker, never enforced here.
	DefaultMaxAttempts = 3
)

// Job is one durable unit of pending synchronization work.
type Job struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement;column:id"`
	CorrelationID string     `gorm:"column:correlation_id"`
	Module        string     `gorm:"column:module;index"`
	Direction     Direction  `gorm:"column:direction"`
	EntityType    string     `gorm:"column:entity_type;index"`
	WPID          int64      `gorm:"column:wp_id"`
	OdooID        int64      `gorm:"column:odoo_id"`
	Action        Action     `gorm:"column:action"`
	Payload       []byte     `gorm:"column:payload"`
	Priority      int        `gorm:"column:priority"`
	Status        Status     `gorm:"column:status;index"`
	Attempts      int        `gorm:"column:attempts"`
	MaxAttempts   int        `gorm:"column:max_attempts"`
	ErrorMessage  string     `gorm:"column:error_message"`
	ScheduledAt   *time.Time `gorm:"column:scheduled_at"`
	ProcessedAt   *time.Time `gorm:"column:processed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

// JobFromRow decodes a raw row into a Job, defaulting every missing or
// malformed optional field. Numeric-looking strings coerce to integers.
// Legacy rows that predate newer columns decode to a usable Job rather than
// an error.
func JobFromRow(row map[string]any) Job {
	j := Job{
		ID:            uintField(row, "id", 0),
		CorrelationID: strField(row, "correlation_id", ""),
		Module:        strField(row, "module", ""),
		Direction:     Direction(strField(row, "direction", string(DirectionWPToOdoo))),
		EntityType:    strField(row, "entity_type", ""),
		WPID:          intField(row, "wp_id", 0),
		OdooID:        intField(row, "odoo_id", 0),
		Action:        Action(strField(row, "action", string(ActionUpdate))),
		Priority:      int(intField(row, "priority", DefaultPriority)),
		Status:        Status(strField(row, "status", string(StatusPending))),
		Attempts:      int(intField(row, "attempts", 0)),
		MaxAttempts:   int(intField(row, "max_attempts", DefaultMaxAttempts)),
		ErrorMessage:  strField(row, "error_message", ""),
	}
	if j.Attempts < 0 {
		j.Attempts = 0
	}
	if j.Priority < 0 {
		j.Priority = DefaultPriority
	}
	switch v := row["payload"].(type) {
	case []byte:
		j.Payload = v
	case string:
		if v != "" {
			j.Payload = []byte(v)
		}
	}
	j.CreatedAt = timeField(row, "created_at")
	if t := timeField(row, "scheduled_at"); !t.IsZero() {
		j.ScheduledAt = &t
	}
	if t := timeField(row, "processed_at"); !t.IsZero() {
		j.ProcessedAt = &t
	}
	return j
}

func strField(row map[string]any, key, def string) string {
	if v, ok := row[key].(string); ok && v != "" {
		return v
	}
	return def
}

func intField(row map[string]any, key string, def int64) int64 {
	switch v := row[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func uintField(row map[string]any, key string, def uint64) uint64 {
	n := intField(row, key, int64(def))
	if n < 0 {
		return def
	}
	return uint64(n)
}

func timeField(row map[string]any, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateTime} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
