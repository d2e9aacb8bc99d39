package models

// MessageType distinguishes plain text from image messages. Image messages
// carry the uploaded image URL in Content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Valid reports whether the type is one the store accepts.
func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeImage
}

// Message is the message hash stored at message:<id> in Redis. Timestamp
// is milliseconds since epoch at creation time on the server; retrieval
// order is non-decreasing by this value.
type Message struct {
	SenderID    string      `json:"senderId" redis:"senderId"`
	Content     string      `json:"content" redis:"content"`
	Timestamp   int64       `json:"timestamp" redis:"timestamp"`
	MessageType MessageType `json:"messageType" redis:"messageType"`
}

// SendMessageRequest is the request structure for sending a message.
// The sender is always the authenticated caller and never part of the body.
type SendMessageRequest struct {
	Content     string      `json:"content" binding:"required"`
	ReceiverID  string      `json:"receiverId" binding:"required"`
	MessageType MessageType `json:"messageType" binding:"required"`
}

// SendMessageResponse is the structured result of a send. Failures are
// soft: Success is false and Message carries the reason.
type SendMessageResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Message        string `json:"message,omitempty"`
}
