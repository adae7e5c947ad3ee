package openai

import (
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/sashabaranov/go-openai"
)

// toChatMessages maps conversation items onto chat messages. Function calls
// are folded into the preceding assistant message as tool calls, and function
// outputs become tool messages.
func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Type {
		case domain.MessageTypeFunctionCall:
			call := openai.ToolCall{
				ID:   m.CallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      m.Name,
					Arguments: m.Arguments,
				},
			}
			if n := len(out); n > 0 && out[n-1].Role == openai.ChatMessageRoleAssistant {
				out[n-1].ToolCalls = append(out[n-1].ToolCalls, call)
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{call},
			})
		case domain.MessageTypeFunctionCallOutput:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Output,
				ToolCallID: m.CallID,
			})
		default:
			role := m.Role
			if role == "" {
				role = domain.RoleUser
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:    role,
				Content: m.Content,
			})
		}
	}
	return out
}

func fromChatMessage(msg openai.ChatCompletionMessage) []domain.Message {
	var out []domain.Message
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		out = append(out, domain.AssistantMessage(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		out = append(out, domain.FunctionCall(call.ID, call.Function.Name, call.Function.Arguments))
	}
	return out
}

func toTools(defs []registry.Definition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Strict:      d.Strict,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}
