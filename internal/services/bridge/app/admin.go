package server

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/id"
	"github.com/louisbranch/bridge-ai/internal/platform/timeouts"
)

// adminCookieName holds the signed admin session token.
const adminCookieName = "bridge_admin"

const adminTokenIssuer = "bridge-ai"

// adminAuth issues and verifies admin session tokens. It is disabled when
// no admin id or password is configured, in which case every admin surface
// is open.
type adminAuth struct {
	userID   string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func newAdminAuth(userID string, password string, secret string, now func() time.Time) (*adminAuth, error) {
	auth := &adminAuth{
		userID:   strings.TrimSpace(userID),
		password: password,
		secret:   []byte(secret),
		ttl:      timeouts.AdminSession,
		now:      now,
	}
	if auth.now == nil {
		auth.now = time.Now
	}
	if auth.enabled() && len(auth.secret) == 0 {
		// Without a configured secret, sessions last until restart.
		auth.secret = make([]byte, 32)
		if _, err := rand.Read(auth.secret); err != nil {
			return nil, fmt.Errorf("generate admin token secret: %w", err)
		}
	}
	return auth, nil
}

func (a *adminAuth) enabled() bool {
	return a != nil && a.userID != "" && a.password != ""
}

// checkCredentials compares in constant time.
func (a *adminAuth) checkCredentials(userID string, password string) error {
	idOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(userID)), []byte(a.userID)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !idOK || !passwordOK {
		return apperrors.New(apperrors.CodeAdminInvalidCredentials, "invalid admin credentials")
	}
	return nil
}

func (a *adminAuth) issue() (string, time.Time, error) {
	tokenID, err := id.NewID()
	if err != nil {
		return "", time.Time{}, err
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    adminTokenIssuer,
		Subject:   a.userID,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return token, expires, nil
}

func (a *adminAuth) verify(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.New(apperrors.CodeAdminUnauthenticated, "admin session is required")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithSubject(a.userID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return mapJWTError(err)
	}
	return nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Wrap(apperrors.CodeAdminSessionExpired, "admin session expired", err)
	}
	return apperrors.Wrap(apperrors.CodeAdminUnauthenticated, "admin session invalid", err)
}

// authenticated reports whether r carries a valid admin session. With
// auth disabled every request is treated as an admin.
func (a *adminAuth) authenticated(r *http.Request) error {
	if !a.enabled() {
		return nil
	}
	cookie, err := r.Cookie(adminCookieName)
	if err != nil {
		return apperrors.New(apperrors.CodeAdminUnauthenticated, "admin session is required")
	}
	return a.verify(cookie.Value)
}

func (a *adminAuth) writeCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *adminAuth) clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// requireAdmin rejects requests without a valid admin session.
func (s *handlers) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.admin.authenticated(r); err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

func (s *handlers) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.admin.enabled() {
		writeJSON(w, http.StatusOK, map[string]any{"authRequired": false})
		return
	}
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.admin.checkCredentials(req.UserID, req.Password); err != nil {
		s.logger.Info("admin login rejected")
		s.writeError(w, err)
		return
	}
	token, expires, err := s.admin.issue()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.admin.writeCookie(w, r, token, expires)
	writeJSON(w, http.StatusOK, map[string]any{"authRequired": true, "expiresAt": expires.UTC()})
}

func (s *handlers) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.admin.clearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// requestScheme honors X-Forwarded-Proto from a fronting proxy.
func requestScheme(r *http.Request) string {
	if r == nil {
		return "http"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme, _, _ := strings.Cut(forwarded, ",")
		return strings.ToLower(strings.TrimSpace(scheme))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
