package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/internal/realtime"
	"realtime-chat-demo/backend/internal/repository"
	"realtime-chat-demo/backend/pkg/cache"
	"realtime-chat-demo/backend/pkg/config"
	"realtime-chat-demo/backend/pkg/logger"
)

var (
	ErrEmptyContent       = errors.New("message content is empty")
	ErrContentTooLong     = errors.New("message content exceeds the maximum length")
	ErrInvalidMessageType = errors.New("message type must be text or image")
	ErrMissingReceiver    = errors.New("receiver id is required")
)

const contactsCacheKey = "directory:contacts"

// SendResult reports where a message landed.
type SendResult struct {
	ConversationID string
	MessageID      string
	Timestamp      int64
}

// ChatService orchestrates a send: resolve the conversation, append the
// message, fan it out. Reads go straight to the store.
type ChatService struct {
	store      repository.ConversationStore
	directory  repository.UserDirectory
	publisher  realtime.Publisher
	contacts   *cache.Cache
	log        *logger.Logger
	maxContent int
}

func NewChatService(
	store repository.ConversationStore,
	directory repository.UserDirectory,
	publisher realtime.Publisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		store:      store,
		directory:  directory,
		publisher:  publisher,
		contacts:   cache.NewCache(),
		log:        log,
		maxContent: config.Get().Chat.MaxMessageLength,
	}
}

// SendMessage validates the request, lazily creates the conversation on
// first contact and appends the message. The send is successful once both
// persistence writes land; fan-out failure is logged and deliberately not
// surfaced, because subscribers recover the message from the store on
// their next history read.
func (s *ChatService) SendMessage(ctx context.Context, senderID string, req models.SendMessageRequest) (*SendResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if s.maxContent > 0 && len(req.Content) > s.maxContent {
		return nil, ErrContentTooLong
	}
	if !req.MessageType.Valid() {
		return nil, ErrInvalidMessageType
	}
	if req.ReceiverID == "" {
		return nil, ErrMissingReceiver
	}

	conversationID, err := s.store.EnsureConversation(ctx, senderID, req.ReceiverID)
	if err != nil {
		return nil, err
	}

	messageID, timestamp, err := s.store.AppendMessage(ctx, conversationID, senderID, req.Content, req.MessageType)
	if err != nil {
		return nil, err
	}

	message := models.Message{
		SenderID:    senderID,
		Content:     req.Content,
		Timestamp:   timestamp,
		MessageType: req.MessageType,
	}
	if err := s.publisher.PublishNewMessage(ctx, senderID, req.ReceiverID, message); err != nil {
		s.log.Warn("realtime publish failed, message persisted",
			"conversation_id", conversationID,
			"message_id", messageID,
			"error", err.Error(),
		)
	}

	return &SendResult{
		ConversationID: conversationID,
		MessageID:      messageID,
		Timestamp:      timestamp,
	}, nil
}

// GetMessages returns the full history between the caller and the selected
// peer in chronological order. Never creates a conversation.
func (s *ChatService) GetMessages(ctx context.Context, currentUserID, selectedUserID string) ([]models.Message, error) {
	return s.store.ListMessages(ctx, currentUserID, selectedUserID)
}

// EnsureUser upserts the caller's directory profile on authentication.
func (s *ChatService) EnsureUser(ctx context.Context, identity models.Identity) error {
	created, err := s.directory.EnsureUser(ctx, identity)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("user profile created", "user_id", identity.ID)
	}
	return nil
}

// ListContacts returns every directory profile except the caller's, for
// the sidebar. The directory scan is cached briefly; a freshly signed-up
// user appears after the entry expires.
func (s *ChatService) ListContacts(ctx context.Context, currentUserID string) ([]models.Profile, error) {
	var profiles []models.Profile
	if cached, ok := s.contacts.Get(contactsCacheKey); ok {
		profiles = cached.([]models.Profile)
	} else {
		var err error
		profiles, err = s.directory.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		s.contacts.SetWithExpiration(contactsCacheKey, profiles, 5*time.Second)
	}

	contacts := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == currentUserID {
			continue
		}
		contacts = append(contacts, p)
	}
	return contacts, nil
}
