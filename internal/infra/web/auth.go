package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	SecureCookie bool
	TTL          time.Duration
}

type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, secure bool, ttl time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret:   []byte(secret),
		CookieName:   "admin_session",
		SecureCookie: secure,
		TTL:          ttl,
	}}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (a *AuthManager) Mint(w http.ResponseWriter) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   "admin",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, nil
}

func (a *AuthManager) verify(r *http.Request) error {
	c, err := r.Cookie(a.cfg.CookieName)
	if err != nil {
		return errors.New("missing session cookie")
	}
	var claims AdminClaims
	token, err := jwt.ParseWithClaims(c.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.cfg.HMACSecret, nil
	})
	if err != nil || !token.Valid {
		return errors.New("invalid session")
	}
	if claims.Role != "admin" {
		return errors.New("not an admin session")
	}
	return nil
}

// Guard rejects requests without a valid admin session cookie.
func (a *AuthManager) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.verify(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
