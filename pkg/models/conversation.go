package models

import "time"

// Role is the author type of a ConversationMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ConversationMessage is one turn in a Conversation.
type ConversationMessage struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation is owned exclusively by the Orchestrator. Each turn appends
// the user prompt and the assistant reply (tool results are not added),
// and it is truncated wholesale by
// /clear; nothing else in this module mutates it.
type Conversation struct {
	SessionID string                 `json:"session_id"`
	Messages  []ConversationMessage  `json:"messages"`
}

// Append adds a message to the conversation.
func (c *Conversation) Append(msg ConversationMessage) {
	c.Messages = append(c.Messages, msg)
}

// Clear truncates the conversation, matching the /clear slash command.
func (c *Conversation) Clear() {
	c.Messages = c.Messages[:0]
}

// Len returns the number of messages currently held.
func (c *Conversation) Len() int {
	return len(c.Messages)
}
