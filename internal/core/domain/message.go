package domain

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of the canonical message set sent to the model.
// Field order matters for canonicalization: keys are serialized sorted
// (content before role), list order is semantically significant.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
