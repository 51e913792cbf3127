package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmuntal/stateless" // FSM library

	"github.com/comigor/salesdesk/internal/conversation"
	"github.com/comigor/salesdesk/internal/logger"
	"github.com/comigor/salesdesk/internal/session"
)

// FSM States
const (
	StateReceived      = "Received"
	StateAwaitingReply = "AwaitingReply"
	StateReplied       = "Replied"
	StateFailed        = "Failed"
	StateRecorded      = "Recorded" // Terminal: transcript persisted and logged
)

// FSM Triggers
const (
	TriggerSubmit  = "Submit"
	TriggerReplied = "Replied"
	TriggerFailed  = "Failed"
	TriggerRecord  = "Record"
)

// Completer produces the assistant reply for a transcript.
type Completer interface {
	Complete(ctx context.Context, transcript conversation.Transcript) conversation.Reply
}

// Saver persists a session after the turn.
type Saver interface {
	Save(ctx context.Context, st *session.State) error
}

// Recorder appends an exchange to the visitor's log.
type Recorder interface {
	Append(visitorID, userText, assistantText string) error
}

// Agent runs chat turns against a session.
type Agent struct {
	completer Completer
	saver     Saver
	recorder  Recorder
	seed      conversation.Seed
	maxTurns  int
}

// New creates a new agent. maxTurns <= 0 keeps transcripts unbounded.
func New(completer Completer, saver Saver, recorder Recorder, seed conversation.Seed, maxTurns int) (*Agent, error) {
	if completer == nil {
		return nil, errors.New("agent: completer must not be nil")
	}
	if saver == nil {
		return nil, errors.New("agent: saver must not be nil")
	}
	if recorder == nil {
		return nil, errors.New("agent: recorder must not be nil")
	}
	return &Agent{
		completer: completer,
		saver:     saver,
		recorder:  recorder,
		seed:      seed,
		maxTurns:  maxTurns,
	}, nil
}

// Process runs one turn: append the user text, ask for a completion, append
// the reply (or the failure), persist the session and log the exchange.
// It returns the assistant message. Persistence and logging failures are
// logged only; the turn still completes.
func (a *Agent) Process(ctx context.Context, st *session.State, input string) (conversation.Message, error) {
	transcript := st.TranscriptOrSeed(a.seed)
	var reply conversation.Message

	fsm := stateless.NewStateMachine(StateReceived)

	fsm.Configure(StateReceived).
		Permit(TriggerSubmit, StateAwaitingReply)

	// State: AwaitingReply
	// Action: add the user turn; the caller then fires Replied or Failed.
	fsm.Configure(StateAwaitingReply).
		OnEntry(func(_ context.Context, _ ...any) error {
			transcript = transcript.AppendUser(input)
			return nil
		}).
		Permit(TriggerReplied, StateReplied).
		Permit(TriggerFailed, StateFailed)

	appendReply := func(_ context.Context, args ...any) error {
		if len(args) == 0 {
			return errors.New("agent: reply missing")
		}
		r, ok := args[0].(conversation.Reply)
		if !ok {
			return fmt.Errorf("agent: unexpected reply type %T", args[0])
		}
		transcript = transcript.AppendReply(r)
		reply = r.Message()
		return nil
	}

	fsm.Configure(StateReplied).
		OnEntry(appendReply).
		Permit(TriggerRecord, StateRecorded)

	fsm.Configure(StateFailed).
		OnEntry(appendReply).
		Permit(TriggerRecord, StateRecorded)

	// State: Recorded
	// Action: bound the transcript, store the session and write the log.
	fsm.Configure(StateRecorded).
		OnEntry(func(ctx context.Context, _ ...any) error {
			st.Transcript = transcript.Trim(a.maxTurns)
			// the visitor may have gone away; the turn is still stored
			if err := a.saver.Save(context.WithoutCancel(ctx), st); err != nil {
				logger.L.Error("failed to save session", "session", st.ID, "error", err)
			}
			if err := a.recorder.Append(st.VisitorID, input, reply.Display()); err != nil {
				logger.L.Error("failed to save log", "visitor", st.VisitorID, "error", err)
			}
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerSubmit); err != nil {
		return conversation.Message{}, fmt.Errorf("agent: submit: %w", err)
	}

	r := a.completer.Complete(ctx, transcript)
	trigger := TriggerReplied
	if r.Err != nil {
		trigger = TriggerFailed
	}
	logger.L.Debug("completion finished", "visitor", st.VisitorID, "trigger", trigger)

	if err := fsm.FireCtx(ctx, trigger, r); err != nil {
		return conversation.Message{}, fmt.Errorf("agent: %s: %w", trigger, err)
	}
	if err := fsm.FireCtx(ctx, TriggerRecord); err != nil {
		return conversation.Message{}, fmt.Errorf("agent: record: %w", err)
	}

	if state := fsm.MustState(); state != StateRecorded {
		return conversation.Message{}, fmt.Errorf("agent: turn ended in unexpected state %v", state)
	}
	return reply, nil
}
