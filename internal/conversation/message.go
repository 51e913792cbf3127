// Package conversation models the role-tagged transcript exchanged with the
// completion API. Transcripts are plain values; sessions own them.
package conversation

import (
	"errors"
	"fmt"
)

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrorPrefix starts every assistant turn that stands in for a failed completion.
const ErrorPrefix = "An error occurred:"

// Message is a single transcript entry. Failure is non-empty only for an
// assistant turn produced by a failed completion; Content is empty then.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Failure string `json:"failure,omitempty"`
}

// Failed reports whether the message records a failed completion.
func (m Message) Failed() bool { return m.Failure != "" }

// Display is the text shown to the visitor, written to the log and replayed
// upstream.
func (m Message) Display() string {
	if m.Failed() {
		return fmt.Sprintf("%s %s", ErrorPrefix, m.Failure)
	}
	return m.Content
}

// Reply is the outcome of one completion: either text or the reason it failed.
type Reply struct {
	Text string
	Err  error
}

// Ok wraps a successful completion.
func Ok(text string) Reply { return Reply{Text: text} }

// Failed wraps a failed completion. A nil error still yields a failure.
func Failed(err error) Reply {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Reply{Err: err}
}

// Message converts the reply into an assistant turn.
func (r Reply) Message() Message {
	if r.Err != nil {
		return Message{Role: RoleAssistant, Failure: r.Err.Error()}
	}
	return Message{Role: RoleAssistant, Content: r.Text}
}
