package storage

// Scope selects which lifetime store a key lives in
type Scope int

const (
	// Durable survives restarts; used for authenticated visitors.
	Durable Scope = iota
	// Ephemeral is short-lived; used for guests and carries expiry.
	Ephemeral
)

// ScopeFor returns the scope matching an authentication state
func ScopeFor(authenticated bool) Scope {
	if authenticated {
		return Durable
	}
	return Ephemeral
}

func (s Scope) String() string {
	switch s {
	case Durable:
		return "durable"
	case Ephemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// Storage keys
const (
	KeyChatSessions     = "chatSessions"
	KeyTempChatSessions = "tempChatSessions"
	KeyUserData         = "userData"
)

// SessionsKey returns the session list key for a scope
func SessionsKey(scope Scope) string {
	if scope == Durable {
		return KeyChatSessions
	}
	return KeyTempChatSessions
}
