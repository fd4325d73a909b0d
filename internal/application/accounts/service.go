package accounts

import (
	"context"
	"errors"
	"strings"

	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidUsername = errors.New("Username must be 3-32 letters, digits, '.', '_' or '-'")
	ErrInvalidPassword = errors.New("Password must be at least 8 characters with a letter and a digit")
	ErrUsernameTaken   = errors.New("Username already registered")
	ErrAccountNotFound = errors.New("Account not found")
)

// Service creates and loads paper-trading accounts.
type Service struct {
	DB          *gorm.DB
	SeedBalance decimal.Decimal
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account funded with the seed balance.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	if !validation.IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}

	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Account{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrUsernameTaken
	}

	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, err
	}

	a := &domain.Account{
		Username:     username,
		PasswordHash: string(hash),
		Balance:      s.SeedBalance,
	}
	// The count above is a fast path; the unique index settles concurrent sign-ups.
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	log.Info().Str("account_id", a.AccountID.String()).Str("username", username).Msg("accounts: registered")
	return a, nil
}

func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	if err := s.DB.WithContext(ctx).Where("account_id = ?", accountID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}
