package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls the session cookie flags.
type SessionConfig struct {
	Secret            string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "papertrade.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour

	accountLocal     = "account"
	sessionDataLocal = "session_data"
	sessionIDLocal   = "session_id"
)

// SessionStore persists session data by id.
type SessionStore interface {
	Load(ctx context.Context, id string) (map[string]interface{}, error)
	Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions as JSON under "session:<id>".
type RedisSessionStore struct {
	Rdb *redis.Client
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	b, err := s.Rdb.Get(ctx, SessionRedisPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.Rdb.Set(ctx, SessionRedisPrefix+id, b, ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.Rdb.Del(ctx, SessionRedisPrefix+id).Err()
}

// MemorySessionStore is used when no redis is configured. Sessions do not
// survive a restart.
type MemorySessionStore struct {
	mu   sync.Mutex
	data map[string]memorySession
}

type memorySession struct {
	body    []byte
	expires time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]memorySession)}
}

func (s *MemorySessionStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	s.mu.Lock()
	sess, ok := s.data[id]
	if ok && time.Now().After(sess.expires) {
		delete(s.data, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(sess.body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[id] = memorySession{body: b, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// Session loads session data into Locals before the handler runs and saves
// it afterwards when a session id is set.
func Session(store SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		// Signed cookies look like "s:id.signature"; only the id is used.
		if strings.HasPrefix(sessionID, "s:") {
			sessionID = strings.SplitN(sessionID[2:], ".", 2)[0]
		}

		var data map[string]interface{}
		if sessionID != "" {
			loaded, err := store.Load(c.UserContext(), sessionID)
			if err != nil {
				log.Warn().Err(err).Msg("session: load failed")
			}
			data = loaded
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals(sessionDataLocal, data)
		c.Locals(accountLocal, data["account"])
		c.Locals(sessionIDLocal, sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		if sid := GetSessionID(c); sid != "" {
			if updated, _ := c.Locals(sessionDataLocal).(map[string]interface{}); len(updated) > 0 {
				if err := store.Save(c.UserContext(), sid, updated, sessionMaxAge); err != nil {
					log.Warn().Err(err).Msg("session: save failed")
				}
			}
		}
		return nil
	}
}

// GetSessionID returns the current session ID from context (for login/logout).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// SetSessionAccount stores the logged-in account in the session.
// Call RegenerateSessionID first.
func SetSessionAccount(c *fiber.Ctx, account map[string]interface{}) {
	data, _ := c.Locals(sessionDataLocal).(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["account"] = account
	c.Locals(sessionDataLocal, data)
	c.Locals(accountLocal, account)
}

// RegenerateSessionID creates a new session ID and sets it in Locals (cookie set by handler).
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession clears the account and session id from Locals; caller deletes the stored session.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, make(map[string]interface{}))
	c.Locals(accountLocal, nil)
	c.Locals(sessionIDLocal, "")
}

// SessionCookieConfig returns the session cookie options (for SetCookie/ClearCookie).
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
