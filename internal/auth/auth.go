// Package auth implements the single demo login of the practice and keeps the
// logged-in user in a signed cookie session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"studio/internal/log"
)

const (
	SessionName = "dentist_user"

	DemoEmail = "demo@studio.it"
	DemoName  = "Studio Dentistico"
	DemoID    = "1"

	demoPassword = "demo123"
	maxAge       = 30 * 24 * 60 * 60
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Authenticator struct {
	hash   []byte
	store  sessions.Store
	logger *log.Logger
}

// NewCookieStore builds the session store. An empty key yields a random one,
// so sessions do not survive a restart.
func NewCookieStore(key []byte, secure bool) *sessions.CookieStore {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	store.Options.MaxAge = maxAge
	return store
}

func New(store sessions.Store, logger *log.Logger) (*Authenticator, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if logger == nil {
		logger = log.Default(log.ComponentAuth)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &Authenticator{hash: hash, store: store, logger: logger}, nil
}

// Check verifies a credential pair against the demo account
func (a *Authenticator) Check(email, password string) (User, error) {
	if email != DemoEmail {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: DemoID, Email: DemoEmail, Name: DemoName}, nil
}

// Login checks the credentials and stores the user in the session cookie
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request, email, password string) (User, error) {
	user, err := a.Check(email, password)
	if err != nil {
		a.logger.WarnContext(r.Context(), "Login rejected", "email", email)
		return User{}, err
	}

	session, _ := a.store.Get(r, SessionName)
	session.Values["id"] = user.ID
	session.Values["email"] = user.Email
	session.Values["name"] = user.Name
	session.Options.MaxAge = maxAge
	if err := session.Save(r, w); err != nil {
		return User{}, fmt.Errorf("save session: %w", err)
	}

	a.logger.InfoContext(r.Context(), "Login successful", "user_id", user.ID)
	return user, nil
}

// Logout expires the session cookie
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, SessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current restores the logged-in user from the request's session cookie
func (a *Authenticator) Current(r *http.Request) (User, bool) {
	session, err := a.store.Get(r, SessionName)
	if err != nil {
		return User{}, false
	}
	id, _ := session.Values["id"].(string)
	if id == "" {
		return User{}, false
	}
	email, _ := session.Values["email"].(string)
	name, _ := session.Values["name"].(string)
	return User{ID: id, Email: email, Name: name}, true
}

type contextKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}

// Require rejects requests without a session with 401 and exposes the user
// to downstream handlers through the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.Current(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
