// Package prompt builds bounded-context prompts from a conversation log.
package prompt

import (
	"strings"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// DefaultWindowSize is the number of prior messages sent as context.
const DefaultWindowSize = 10

// DefaultSystemInstruction is the assistant persona used when none is configured.
const DefaultSystemInstruction = `Tu ek helpful AI assistant hai. Tera naam "AI Sahayak" hai.
Tu Hinglish mein baat karta hai - matlab Hindi + English mix.
Short aur clear answers de. Friendly tone rakha kar.
User ko coding, general knowledge, ya kisi bhi topic mein help kar.`

// PromptRole is the role of a prompt message.
type PromptRole string

const (
	RoleSystem    PromptRole = "system"
	RoleUser      PromptRole = "user"
	RoleAssistant PromptRole = "assistant"
)

// PromptMessage is one entry of a role-tagged prompt.
type PromptMessage struct {
	Role    PromptRole
	Content string
}

// Prompt is an assembled request: a system instruction, windowed context and
// the new user turn.
type Prompt struct {
	System  string
	Context []domain.Message
	Turn    string
}

// Messages renders the prompt as a role-tagged list: system first, then the
// context in order, then the new user turn.
func (p *Prompt) Messages() []PromptMessage {
	out := make([]PromptMessage, 0, len(p.Context)+2)
	out = append(out, PromptMessage{Role: RoleSystem, Content: p.System})
	for _, msg := range p.Context {
		out = append(out, PromptMessage{Role: promptRole(msg.Role), Content: msg.Content})
	}
	out = append(out, PromptMessage{Role: RoleUser, Content: p.Turn})
	return out
}

// Text renders the prompt as a single transcript ending with an open
// assistant turn.
func (p *Prompt) Text() string {
	var b strings.Builder
	b.WriteString(p.System)
	b.WriteString("\n\n")
	for _, msg := range p.Context {
		if msg.Role == domain.RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(p.Turn)
	b.WriteString("\nAssistant: ")
	return b.String()
}

func promptRole(r domain.Role) PromptRole {
	if r == domain.RoleUser {
		return RoleUser
	}
	return RoleAssistant
}

// Assembler turns a conversation log into a Prompt.
type Assembler struct {
	System     string
	WindowSize int
}

// NewAssembler creates an assembler, falling back to the defaults for an
// empty system instruction or a non-positive window.
func NewAssembler(system string, windowSize int) *Assembler {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemInstruction
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Assembler{System: system, WindowSize: windowSize}
}

// Build assembles a prompt from log. The last message of log is the new user
// turn; up to WindowSize messages before it form the context.
func (a *Assembler) Build(log []domain.Message) *Prompt {
	p := &Prompt{System: a.System}
	if len(log) == 0 {
		return p
	}
	last := log[len(log)-1]
	p.Turn = last.Content
	p.Context = Window(log[:len(log)-1], a.WindowSize)
	return p
}

// Window returns the last n messages of log in order. The result does not
// share its backing array with log.
func Window(log []domain.Message, n int) []domain.Message {
	if n <= 0 || len(log) == 0 {
		return []domain.Message{}
	}
	if n > len(log) {
		n = len(log)
	}
	out := make([]domain.Message, n)
	copy(out, log[len(log)-n:])
	return out
}
