package auth

import (
	"errors"

	acctsvc "papertrade-backend/internal/application/accounts"
	authsvc "papertrade-backend/internal/auth"
	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/middleware"
	"papertrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Finder   authsvc.AccountFinder
	Accounts *acctsvc.Service
	Sessions middleware.SessionStore
	Config   middleware.SessionConfig
}

// Login POST /api/v1/auth/login: authenticate, start a session, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.Finder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrUsernamePasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if req.Username == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrUsernamePasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	account, err := h.Finder.FindByCredentials(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrUsernamePasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrUnknownUsername), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			log.Error().Err(err).Msg("auth/login: lookup failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sess := h.startSession(c, account)
	return response.Success(c, "Login successful", fiber.Map{"account": sess}, nil)
}

// Register POST /api/v1/auth/register: create a funded account and log it in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	if h.Accounts == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req acctsvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrUsernamePasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	account, err := h.Accounts.Register(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, acctsvc.ErrInvalidUsername), errors.Is(err, acctsvc.ErrInvalidPassword):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, acctsvc.ErrUsernameTaken):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		default:
			log.Error().Err(err).Msg("auth/register: create failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sess := h.startSession(c, account)
	return response.SuccessCreated(c, "Account created", fiber.Map{
		"account": sess,
		"balance": account.Balance,
	}, nil)
}

func (h *Handlers) startSession(c *fiber.Ctx, account *domain.Account) authsvc.SessionAccount {
	if old := middleware.GetSessionID(c); old != "" && h.Sessions != nil {
		_ = h.Sessions.Delete(c.UserContext(), old)
	}
	sessionID := middleware.RegenerateSessionID(c)
	sess := authsvc.SessionAccount{AccountID: account.AccountID.String(), Username: account.Username}
	middleware.SetSessionAccount(c, sess.Map())

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)
	return sess
}

// Me GET /api/v1/auth/me: return current session account.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess, err := authsvc.VerifySession(middleware.GetAccount(c))
	if err != nil {
		if middleware.GetSessionID(c) != "" {
			log.Debug().Str("path", "/auth/me").Msg("auth/me: session id present but no account in session")
		}
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"account": sess}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the stored session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sessionID := middleware.GetSessionID(c); sessionID != "" && h.Sessions != nil {
		if err := h.Sessions.Delete(c.UserContext(), sessionID); err != nil {
			log.Warn().Err(err).Msg("auth/logout: session delete failed")
		}
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out successfully", nil, nil)
}
