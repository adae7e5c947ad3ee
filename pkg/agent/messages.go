package agent

import "github.com/aretw0/lattice/pkg/domain"

// LastMessage returns the most recent conversation item.
func LastMessage(s State) (domain.Message, bool) {
	if len(s.Messages) == 0 {
		return domain.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// IsAssistantMessage reports whether m is a message authored by the model.
func IsAssistantMessage(m domain.Message) bool {
	return m.IsAssistant()
}

// IsFunctionCallMessage reports whether m asks for a tool to be called.
func IsFunctionCallMessage(m domain.Message) bool {
	return m.IsFunctionCall()
}

// FinalReply returns the content of the last assistant message, or "" if the
// model never answered.
func FinalReply(s State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if IsAssistantMessage(s.Messages[i]) {
			return s.Messages[i].Content
		}
	}
	return ""
}
