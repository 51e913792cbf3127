package conversation

// KnowledgePrefix introduces the knowledge seed message.
const KnowledgePrefix = "Preloaded Knowledge: "

// Seed holds the two fixed system prompts every transcript starts with.
type Seed struct {
	Instructions string
	Knowledge    string
}

// Messages returns the seed as system messages, instructions first.
func (s Seed) Messages() []Message {
	return []Message{
		{Role: RoleSystem, Content: s.Instructions},
		{Role: RoleSystem, Content: KnowledgePrefix + s.Knowledge},
	}
}

// Transcript is the ordered prompt history. The zero value is an empty,
// unseeded transcript.
type Transcript []Message

// New returns a transcript holding only the seed messages.
func New(seed Seed) Transcript {
	return Transcript(seed.Messages())
}

// AppendUser returns t with a user turn appended. Text is not validated.
func (t Transcript) AppendUser(text string) Transcript {
	return append(t, Message{Role: RoleUser, Content: text})
}

// AppendReply returns t with the reply appended as an assistant turn.
func (t Transcript) AppendReply(r Reply) Transcript {
	return append(t, r.Message())
}

// seedLen counts the leading system messages.
func (t Transcript) seedLen() int {
	n := 0
	for n < len(t) && t[n].Role == RoleSystem {
		n++
	}
	return n
}

// Turns returns the messages after the seed.
func (t Transcript) Turns() []Message {
	return t[t.seedLen():]
}

// Trim keeps the seed and at most the last maxTurns user/assistant exchanges,
// dropping the oldest first. maxTurns <= 0 leaves t untouched.
func (t Transcript) Trim(maxTurns int) Transcript {
	if maxTurns <= 0 {
		return t
	}
	seed := t.seedLen()
	turns := t[seed:]
	limit := maxTurns * 2
	if len(turns) <= limit {
		return t
	}
	out := make(Transcript, 0, seed+limit)
	out = append(out, t[:seed]...)
	return append(out, turns[len(turns)-limit:]...)
}
