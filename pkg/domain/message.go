package domain

// MessageType distinguishes the items of a conversation.
type MessageType string

const (
	MessageTypeMessage            MessageType = "message"
	MessageTypeFunctionCall       MessageType = "function_call"
	MessageTypeFunctionCallOutput MessageType = "function_call_output"
)

// Roles used by MessageTypeMessage items.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one item of an agent conversation.
// Its JSON form matches the input/output items of response-style model APIs.
type Message struct {
	Type    MessageType `json:"type" mapstructure:"type"`
	Role    string      `json:"role,omitempty" mapstructure:"role"`
	Content string      `json:"content,omitempty" mapstructure:"content"`

	// Function call fields.
	Name      string `json:"name,omitempty" mapstructure:"name"`
	Arguments string `json:"arguments,omitempty" mapstructure:"arguments"` // Raw JSON as produced by the model
	CallID    string `json:"call_id,omitempty" mapstructure:"call_id"`

	// Output of a function call, set on MessageTypeFunctionCallOutput.
	Output string `json:"output,omitempty" mapstructure:"output"`
}

// SystemMessage creates the instructions item that opens a conversation.
func SystemMessage(content string) Message {
	return Message{Type: MessageTypeMessage, Role: RoleSystem, Content: content}
}

// UserMessage creates an input item from the user.
func UserMessage(content string) Message {
	return Message{Type: MessageTypeMessage, Role: RoleUser, Content: content}
}

// AssistantMessage creates a plain text reply from the model.
func AssistantMessage(content string) Message {
	return Message{Type: MessageTypeMessage, Role: RoleAssistant, Content: content}
}

// FunctionCall creates a request from the model to invoke a tool.
func FunctionCall(callID, name, arguments string) Message {
	return Message{Type: MessageTypeFunctionCall, CallID: callID, Name: name, Arguments: arguments}
}

// FunctionCallOutput creates the result item answering the call with the same id.
func FunctionCallOutput(callID, output string) Message {
	return Message{Type: MessageTypeFunctionCallOutput, CallID: callID, Output: output}
}

// IsAssistant reports whether m is a plain assistant message.
func (m Message) IsAssistant() bool {
	return m.Type == MessageTypeMessage && m.Role == RoleAssistant
}

// IsFunctionCall reports whether m is a named function call.
func (m Message) IsFunctionCall() bool {
	return m.Type == MessageTypeFunctionCall && m.Name != ""
}
