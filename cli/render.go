package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// Output formats for history.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				MarginBottom(1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

type historyView struct {
	SessionID string        `yaml:"sessionId"`
	Messages  []messageView `yaml:"messages"`
}

type messageView struct {
	Role      string    `yaml:"role"`
	Content   string    `yaml:"content"`
	Timestamp time.Time `yaml:"timestamp"`
}

func renderHistory(w io.Writer, history *domain.HistoryResponse, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	case formatYAML:
		view := historyView{SessionID: history.SessionID, Messages: make([]messageView, 0, len(history.Messages))}
		for _, m := range history.Messages {
			view.Messages = append(view.Messages, messageView{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		fmt.Fprintln(w, sessionHeaderStyle.Render("Session "+history.SessionID))
		if len(history.Messages) == 0 {
			fmt.Fprintln(w, emptyStyle.Render("(no messages)"))
			return nil
		}
		for _, m := range history.Messages {
			renderMessage(w, m.Role, m.Content, m.Timestamp)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (use text, json or yaml)", format)
	}
}

func renderMessage(w io.Writer, role domain.Role, content string, ts time.Time) {
	label := userLabelStyle.Render("You")
	if role == domain.RoleAssistant {
		label = assistantLabelStyle.Render("Assistant")
	}
	stamp := ""
	if !ts.IsZero() {
		stamp = " " + timestampStyle.Render(ts.Local().Format("15:04:05"))
	}
	fmt.Fprintf(w, "%s%s\n%s\n\n", label, stamp, content)
}

func renderReply(w io.Writer, reply *domain.Reply) {
	renderMessage(w, domain.RoleAssistant, reply.Message, reply.Timestamp)
	if reply.Failed() {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("(%s)", reply.Code)))
	}
}
