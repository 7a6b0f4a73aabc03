// Package prompt assembles outbound model requests per mode.
//
// Command mode produces a single instructional prompt asking for a
// reasoning plan plus exactly one shell command, with history embedded
// as transcript text. Chat mode produces a structured message sequence:
// persona instruction, recent history, new user message. Both degrade
// to the no-history case when the conversation store has nothing.
package prompt

import (
	"fmt"
	"strings"

	"github.com/shellmind/shellmind-api/core"
)

// ChatHistoryLimit caps how many prior messages chat mode forwards.
const ChatHistoryLimit = 10

// CommandSchemaName labels the structured command-mode response.
const CommandSchemaName = "command_plan"

const commandInstructions = `You are a terminal assistant. The user describes a task; you respond with a step-by-step reasoning plan and exactly one shell command that accomplishes it.

Respond with a JSON object containing:
- "reasoning": an array of short strings, one per reasoning step
- "command": a single shell command string

Do not include any text outside the JSON object.`

const chatPersona = `You are a friendly terminal assistant in conversation mode. Answer questions, explain concepts, and discuss freely. Do not generate shell commands unless the user explicitly asks for one.`

// CommandResponseSchema is the JSON Schema for the structured
// (reasoning, command) result requested in command mode.
func CommandResponseSchema() map[string]interface{} {
	return ObjectSchema(map[string]interface{}{
		"reasoning": ArrayProperty(
			"Step-by-step reasoning plan, one short string per step.",
			StringProperty("One reasoning step."),
		),
		"command": StringProperty("Exactly one shell command accomplishing the task."),
	}, "reasoning", "command")
}

// BuildCommand builds the single-prompt message sequence for command
// mode. History, when present, is embedded as plain transcript text.
func BuildCommand(input string, history []core.ChatMessage) []core.ChatMessage {
	var b strings.Builder
	b.WriteString(commandInstructions)

	if transcript := Transcript(history); transcript != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(transcript)
	}

	b.WriteString("\n\nTask: ")
	b.WriteString(input)

	return []core.ChatMessage{
		{Role: core.RoleUser, Content: b.String()},
	}
}

// BuildChat builds the structured message sequence for chat mode: the
// persona instruction, up to the last ChatHistoryLimit history messages
// (role and content only, timestamps dropped), then the new user message.
func BuildChat(input string, history []core.ChatMessage) []core.ChatMessage {
	messages := make([]core.ChatMessage, 0, len(history)+2)
	messages = append(messages, core.ChatMessage{
		Role:    core.RoleSystem,
		Content: chatPersona,
	})

	if len(history) > ChatHistoryLimit {
		history = history[len(history)-ChatHistoryLimit:]
	}
	for _, msg := range history {
		messages = append(messages, core.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return append(messages, core.ChatMessage{
		Role:    core.RoleUser,
		Content: input,
	})
}

// Transcript renders history as plain "User:"/"Assistant:" lines.
func Transcript(history []core.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		label := "User"
		if msg.Role == core.RoleAssistant {
			label = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Content))
	}
	return strings.Join(lines, "\n")
}
