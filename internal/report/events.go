package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventSyncAdd    EventType = "sync_add"
	EventSyncRemove EventType = "sync_remove"
	EventMigrate    EventType = "migrate"
	EventMerge      EventType = "merge"
	EventDiscard    EventType = "discard"
	EventAmbiguous  EventType = "ambiguous"
	EventCompare    EventType = "compare"
	EventRename     EventType = "rename"
	EventConflict   EventType = "conflict"
	EventError      EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single audit event
type Event struct {
	Timestamp   time.Time         `json:"ts"`
	Level       EventLevel        `json:"level"`
	Event       EventType         `json:"event"`
	ID          string            `json:"id,omitempty"`
	SrcID       string            `json:"src_id,omitempty"`
	DestID      string            `json:"dest_id,omitempty"`
	Skill       float64           `json:"skill,omitempty"`
	Comparisons int               `json:"comparisons,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// Append so two sessions started within the same second share one file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogSyncAdd logs the creation of a default record for a discovered file
func (l *EventLogger) LogSyncAdd(id string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventSyncAdd,
		ID:    id,
	})
}

// LogSyncRemove logs the removal of a record whose file is gone
func (l *EventLogger) LogSyncRemove(id string, skill float64, comparisons int) error {
	return l.Log(&Event{
		Level:       LevelInfo,
		Event:       EventSyncRemove,
		ID:          id,
		Skill:       skill,
		Comparisons: comparisons,
	})
}

// LogMigrate logs a record key moving to a new identifier
func (l *EventLogger) LogMigrate(srcID, destID, reason string) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventMigrate,
		SrcID:  srcID,
		DestID: destID,
		Reason: reason,
	})
}

// LogMerge logs two records for the same file being folded into one
func (l *EventLogger) LogMerge(keptID, droppedID string, keptComparisons, droppedComparisons int) error {
	return l.Log(&Event{
		Level:       LevelWarning,
		Event:       EventMerge,
		ID:          keptID,
		SrcID:       droppedID,
		Comparisons: keptComparisons,
		Extra: map[string]string{
			"dropped_comparisons": fmt.Sprintf("%d", droppedComparisons),
		},
	})
}

// LogDiscard logs an orphaned record dropped in favour of another
func (l *EventLogger) LogDiscard(id string, skill float64, comparisons int, reason string) error {
	return l.Log(&Event{
		Level:       LevelWarning,
		Event:       EventDiscard,
		ID:          id,
		Skill:       skill,
		Comparisons: comparisons,
		Reason:      reason,
	})
}

// LogAmbiguous logs a legacy key that matches several files
func (l *EventLogger) LogAmbiguous(id string, candidates []string) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventAmbiguous,
		ID:    id,
		Extra: map[string]string{
			"candidates": fmt.Sprintf("%d", len(candidates)),
		},
	})
}

// LogCompare logs a resolved comparison
func (l *EventLogger) LogCompare(idA, idB, outcome string, skillA, skillB float64) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventCompare,
		SrcID:   idA,
		DestID:  idB,
		Outcome: outcome,
		Extra: map[string]string{
			"skill_a": fmt.Sprintf("%.4f", skillA),
			"skill_b": fmt.Sprintf("%.4f", skillB),
		},
	})
}

// LogRename logs an on-disk rename with its key move
func (l *EventLogger) LogRename(srcID, destID, action string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:  level,
		Event:  EventRename,
		SrcID:  srcID,
		DestID: destID,
		Reason: action,
		Error:  errMsg,
	})
}

// LogConflict logs a rename that was skipped because the target exists
func (l *EventLogger) LogConflict(srcID, destID, reason string) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventConflict,
		SrcID:  srcID,
		DestID: destID,
		Reason: reason,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, id string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		ID:    id,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
