// Package domain defines the core domain models for the chat backend.
package domain

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role that may be stored in a session log.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ReplyCode classifies a turn that did not produce a model reply.
// Successful turns carry an empty code.
type ReplyCode string

const (
	ReplyCodeConfigError   ReplyCode = "config_error"
	ReplyCodeUpstreamError ReplyCode = "upstream_error"
	ReplyCodeRejected      ReplyCode = "rejected"
)
