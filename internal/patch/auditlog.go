package patch

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry captures one applied modification for the audit trail. Byte ranges
// are stored as hex so the log replays without ambiguity.
type Entry struct {
	Patch     string    `json:"patch"`
	Offset    int64     `json:"offset"`
	BeforeHex string    `json:"beforeHex"`
	AfterHex  string    `json:"afterHex"`
	Ts        time.Time `json:"ts"`

	// Before and After are convenience fields populated by the engine;
	// only the hex forms are persisted.
	Before []byte `json:"-"`
	After  []byte `json:"-"`
}

// BeforeBytes decodes the pre-patch bytes.
func (e Entry) BeforeBytes() ([]byte, error) {
	if strings.TrimSpace(e.BeforeHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(e.BeforeHex)
}

// AfterBytes decodes the bytes the patch wrote.
func (e Entry) AfterBytes() ([]byte, error) {
	if strings.TrimSpace(e.AfterHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(e.AfterHex)
}

// AuditLog provides append-only access to a JSONL audit trail of applied
// patches. Undo replays it in reverse.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog returns an AuditLog writing to path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Path returns the backing file path.
func (l *AuditLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append serializes the entry as one JSON line.
func (l *AuditLog) Append(entry Entry) error {
	if l == nil {
		return errors.New("nil audit log")
	}
	if entry.Patch == "" {
		return errors.New("audit entry missing patch name")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	if entry.BeforeHex == "" && len(entry.Before) > 0 {
		entry.BeforeHex = hex.EncodeToString(entry.Before)
	}
	if entry.AfterHex == "" && len(entry.After) > 0 {
		entry.AfterHex = hex.EncodeToString(entry.After)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(l.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadAuditLog loads every entry from the JSONL file at path.
func ReadAuditLog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
