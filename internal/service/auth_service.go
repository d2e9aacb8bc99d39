package service

import (
	"context"
	"errors"
	"time"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/pkg/jwt"

	"gorm.io/gorm"
)

var (
	ErrAccountAlreadyExists = errors.New("account with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountNotFound      = errors.New("account not found")
)

// AuthService is the identity provider: accounts live in Postgres, and a
// successful signup or login hands the resulting identity to the chat
// layer so the Redis profile exists before the first message.
type AuthService struct {
	db   *gorm.DB
	jwt  *jwt.Service
	chat *ChatService
}

func NewAuthService(db *gorm.DB, jwtService *jwt.Service, chat *ChatService) *AuthService {
	return &AuthService{db: db, jwt: jwtService, chat: chat}
}

// Signup creates an account and returns it with a signed token.
func (s *AuthService) Signup(ctx context.Context, req *models.SignupRequest) (*models.Account, string, error) {
	var existing models.Account
	result := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		return nil, "", ErrAccountAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, "", result.Error
	}

	account := models.Account{
		Email:      req.Email,
		Password:   req.Password,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Picture:    req.Picture,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		// two signups can race past the existence check; the unique index
		// on email decides the winner
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrAccountAlreadyExists
		}
		return nil, "", err
	}

	if err := s.chat.EnsureUser(ctx, account.Identity()); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, "", err
	}
	return &account, token, nil
}

// Login authenticates an account and returns it with a signed token. The
// directory upsert runs on every login and is a no-op after the first.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.Account, string, error) {
	var account models.Account
	result := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, account.Password) {
		return nil, "", ErrInvalidCredentials
	}

	account.LastLogin = time.Now()
	if err := s.db.WithContext(ctx).Model(&account).Update("last_login", account.LastLogin).Error; err != nil {
		return nil, "", err
	}

	if err := s.chat.EnsureUser(ctx, account.Identity()); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, "", err
	}
	return &account, token, nil
}

// GetAccountByID retrieves an account by its opaque id.
func (s *AuthService) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	result := s.db.WithContext(ctx).First(&account, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}
