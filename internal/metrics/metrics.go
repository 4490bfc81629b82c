// Package metrics implements a write-only JSONL event logger recording how
// sentei is used: which commands run and what cleanups delete. Branch and
// repository names are never stored in clear.
package metrics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const schemaVersion = 1

// Event represents a single metrics event written to the JSONL log.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`

	Command  *CommandEvent  `json:"command,omitempty"`
	Cleanup  *CleanupEvent  `json:"cleanup,omitempty"`
	Decision *DecisionEvent `json:"decision,omitempty"`
	Perf     *PerfEvent     `json:"perf,omitempty"`
}

// CommandEvent records which command was invoked.
type CommandEvent struct {
	Name  string   `json:"name"`
	Flags []string `json:"flags"`
}

// CleanupEvent records the outcome counts of one cleanup batch.
type CleanupEvent struct {
	RepoFingerprint string `json:"repo_fingerprint"`
	Reason          string `json:"reason"`
	Cancelled       bool   `json:"cancelled"`
	Deleted         int    `json:"deleted"`
	Forced          int    `json:"forced"`
	Failed          int    `json:"failed"`
	Rejected        int    `json:"rejected"`
	DeletedRemote   int    `json:"deleted_remote"`
	FailedRemote    int    `json:"failed_remote"`
	SkippedRemote   int    `json:"skipped_remote"`
	DryRun          bool   `json:"dry_run,omitempty"`
}

// DecisionEvent records a confirmation prompt and the user's answer.
type DecisionEvent struct {
	Question string `json:"question"`
	Items    int    `json:"items"`
	Accepted bool   `json:"accepted"`
}

// PerfEvent records how long loading branch state took.
type PerfEvent struct {
	Repos      int `json:"repos"`
	Branches   int `json:"branches"`
	DurationMs int `json:"duration_ms"`
}

// Logger handles writing events to monthly JSONL files.
type Logger struct {
	mu        sync.Mutex
	dir       string
	sessionID string
	file      *os.File
	filePath  string
}

// DefaultDir returns $XDG_DATA_HOME/sentei/metrics, falling back to
// ~/.local/share/sentei/metrics.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sentei", "metrics"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("metrics: home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "sentei", "metrics"), nil
}

// NewOrNil returns a Logger using the default directory, or nil if
// initialization fails. Metrics must never block a command.
func NewOrNil() *Logger {
	dir, err := DefaultDir()
	if err == nil {
		var l *Logger
		if l, err = NewWithDir(dir); err == nil {
			return l
		}
	}
	slog.Debug("metrics disabled", "error", err)
	return nil
}

// NewWithDir creates a Logger writing to dir, creating it if needed.
func NewWithDir(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("metrics: create directory: %w", err)
	}
	sid, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("metrics: generate session ID: %w", err)
	}
	return &Logger{dir: dir, sessionID: sid}, nil
}

// Log writes an event to the current month's JSONL file. The event's
// SchemaVersion, Timestamp, and SessionID are set automatically.
// A nil Logger is safe and silently discards all events.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	event.SchemaVersion = schemaVersion
	event.Timestamp = time.Now()
	event.SessionID = l.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("metrics: marshal event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.openFile()
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("metrics: write event: %w", err)
	}
	return nil
}

// LogCommand logs a command invocation.
func (l *Logger) LogCommand(name string, flags []string) error {
	return l.Log(Event{Command: &CommandEvent{Name: name, Flags: flags}})
}

// LogCleanup logs the counts of a cleanup batch.
func (l *Logger) LogCleanup(ev CleanupEvent) error {
	return l.Log(Event{Cleanup: &ev})
}

// LogDecision logs the answer to a confirmation prompt.
func (l *Logger) LogDecision(question string, items int, accepted bool) error {
	return l.Log(Event{Decision: &DecisionEvent{Question: question, Items: items, Accepted: accepted}})
}

// LogPerf logs how long a state load took.
func (l *Logger) LogPerf(repos, branches int, d time.Duration) error {
	return l.Log(Event{Perf: &PerfEvent{Repos: repos, Branches: branches, DurationMs: int(d.Milliseconds())}})
}

// Close closes the underlying file. A nil Logger is safe.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.filePath = ""
	return err
}

// Fingerprint produces a SHA-256 hex digest of parts. Each part is
// length-prefixed so that ("ab","c") and ("a","bc") hash differently.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%d:%s", len(p), p) // sha256.Write never returns an error
	}
	return hex.EncodeToString(h.Sum(nil))
}

// openFile returns the file for the current month, rotating when the month
// changes. Caller must hold l.mu.
func (l *Logger) openFile() (*os.File, error) {
	want := filepath.Join(l.dir, eventFileName())
	if l.file != nil && l.filePath == want {
		return l.file, nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file, l.filePath = nil, ""
	}

	// #nosec G304 - path constructed from configured dir and deterministic filename
	f, err := os.OpenFile(want, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("metrics: open file: %w", err)
	}
	l.file, l.filePath = f, want
	return f, nil
}

// eventFileName returns the JSONL file name for the current month.
func eventFileName() string {
	return time.Now().Format("events-2006-01") + ".jsonl"
}

// generateSessionID returns a UUID v4 string.
func generateSessionID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16]), nil
}
