// Package journal persists a record of every settled bridge command.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a settled command.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
)

// ErrClosed is returned by repositories after Close.
var ErrClosed = errors.New("journal: closed")

// Entry is one settled command.
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	CommandID string        `json:"command_id"`
	Command   string        `json:"command"`
	Status    Status        `json:"status"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// NewEntry builds an entry for a command that started at startedAt and
// settled with err. kind classifies err and is ignored when err is nil.
func NewEntry(commandID, command string, startedAt time.Time, err error, kind string) *Entry {
	e := &Entry{
		ID:        uuid.New(),
		CommandID: commandID,
		Command:   command,
		Status:    StatusResolved,
		StartedAt: startedAt.UTC(),
		Duration:  time.Since(startedAt),
	}
	if err != nil {
		e.Status = StatusRejected
		e.ErrorKind = kind
		e.Error = err.Error()
	}
	return e
}

// Repository stores journal entries.
type Repository interface {
	// Record appends an entry.
	Record(ctx context.Context, entry *Entry) error

	// List returns up to limit entries, most recent first.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// DeleteOld removes entries started more than olderThanDays ago.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func cutoff(olderThanDays int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -olderThanDays)
}
