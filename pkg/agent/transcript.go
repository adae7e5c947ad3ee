package agent

import (
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/store"
)

// ConversationEventKind names what produced a batch of conversation items.
type ConversationEventKind string

const (
	ConversationInput          ConversationEventKind = "INPUT"
	ConversationModelOutput    ConversationEventKind = "MODEL_OUTPUT"
	ConversationFunctionOutput ConversationEventKind = "FUNCTION_CALL_OUTPUT"
)

// ConversationEvent appends items to a conversation.
type ConversationEvent struct {
	Kind     ConversationEventKind `json:"kind"`
	RunID    string                `json:"run_id,omitempty"`
	Messages []domain.Message      `json:"messages"`
}

// Conversation is the transcript of every run an agent executed.
type Conversation struct {
	Messages []domain.Message `json:"messages"`

	// ModelCalls counts MODEL_OUTPUT events.
	ModelCalls int `json:"model_calls"`
	// Runs lists run ids in the order their input was recorded.
	Runs []string `json:"runs,omitempty"`
}

// Transcript is an event-sourced conversation log shared by an agent's runs.
type Transcript = store.Store[Conversation, ConversationEvent]

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return store.New(ReduceConversation, Conversation{})
}

// ReduceConversation applies e to c without modifying c.
func ReduceConversation(c Conversation, e ConversationEvent) Conversation {
	next := Conversation{
		Messages:   append(slices.Clip(c.Messages), e.Messages...),
		ModelCalls: c.ModelCalls,
		Runs:       c.Runs,
	}
	switch e.Kind {
	case ConversationInput:
		next.Runs = append(slices.Clip(c.Runs), e.RunID)
	case ConversationModelOutput:
		next.ModelCalls++
	}
	return next
}

// ReplayConversation rebuilds a conversation from its events.
func ReplayConversation(events []ConversationEvent) Conversation {
	return store.Replay(ReduceConversation, Conversation{}, events)
}
