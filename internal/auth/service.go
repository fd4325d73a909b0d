package auth

import (
	"errors"
	"strings"

	"papertrade-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionAccount is the object stored in session and returned by /me.
type SessionAccount struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// Map is the session representation of the account.
func (s SessionAccount) Map() map[string]interface{} {
	return map[string]interface{}{"account_id": s.AccountID, "username": s.Username}
}

// AccountFinder abstracts account lookup by credentials (for production GORM or test doubles).
type AccountFinder interface {
	FindByCredentials(username, password string) (*domain.Account, error)
}

// GormAccountFinder implements AccountFinder using GORM and bcrypt.
type GormAccountFinder struct{ DB *gorm.DB }

func (g *GormAccountFinder) FindByCredentials(username, password string) (*domain.Account, error) {
	return Login(g.DB, LoginInput{Username: username, Password: password})
}

// Login finds the account by username and verifies the password.
func Login(db *gorm.DB, input LoginInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrUsernamePasswordRequired
	}
	var a domain.Account
	if err := db.Where("username = ?", username).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownUsername
		}
		return nil, err
	}
	if a.PasswordHash == "" {
		return nil, ErrUnknownUsername
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return &a, nil
}

// VerifySession validates the session value and returns the shape for /me.
func VerifySession(sessionValue interface{}) (*SessionAccount, error) {
	if sessionValue == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionValue.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	accountID, _ := m["account_id"].(string)
	if accountID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionAccount{AccountID: accountID, Username: str(m["username"])}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
