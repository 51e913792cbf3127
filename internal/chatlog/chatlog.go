// Package chatlog writes the append-only plaintext transcript of each visitor.
// Files are never read back by the service.
package chatlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Separator closes every logged exchange.
var Separator = strings.Repeat("=", 40)

// ErrInvalidVisitor is returned for identities that cannot be used as a file name.
var ErrInvalidVisitor = errors.New("chatlog: invalid visitor id")

// Sink appends exchanges to <dir>/<visitorID>.txt.
type Sink struct {
	dir string
}

// New creates the log directory if needed.
func New(dir string) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("chatlog: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chatlog: create dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Path returns the log file of a visitor.
func (s *Sink) Path(visitorID string) string {
	return filepath.Join(s.dir, visitorID+".txt")
}

// Append writes one exchange block. The file is opened and closed per call.
func (s *Sink) Append(visitorID, userText, assistantText string) error {
	if !validVisitor(visitorID) {
		return fmt.Errorf("%w: %q", ErrInvalidVisitor, visitorID)
	}

	f, err := os.OpenFile(s.Path(visitorID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("chatlog: open: %w", err)
	}

	block := fmt.Sprintf("User: %s\nAssistant: %s\n%s\n", userText, assistantText, Separator)
	if _, err := f.WriteString(block); err != nil {
		_ = f.Close()
		return fmt.Errorf("chatlog: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("chatlog: close: %w", err)
	}
	return nil
}

// validVisitor accepts lowercase hex only, which is what sessions mint.
func validVisitor(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
