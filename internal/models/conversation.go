package models

// Conversation is the conversation hash stored at conversation:<a>:<b>.
// The key canonicalizes the pair; the fields remember who was seen first,
// i.e. which participant initiated the conversation.
type Conversation struct {
	Participant1 string `json:"participant1" redis:"participant1"`
	Participant2 string `json:"participant2" redis:"participant2"`
}

// Includes reports whether the given user is one of the two participants.
func (c Conversation) Includes(userID string) bool {
	return c.Participant1 == userID || c.Participant2 == userID
}
