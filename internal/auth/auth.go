// Package auth определяет пользователя запроса по токену провайдера или доверенному заголовку.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredentials = errors.New("authentication required")
	ErrInvalidToken  = errors.New("invalid token")
)

const (
	DefaultUserHeader = "X-User-Id"
	DefaultNameHeader = "X-User-Name"
)

// Identity - пользователь, от имени которого выполняется запрос
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// Claims - содержимое токена провайдера: sub = id пользователя
type Claims struct {
	Name         string `json:"name,omitempty"`
	UserMetadata struct {
		Name string `json:"name,omitempty"`
	} `json:"user_metadata"`
	jwt.RegisteredClaims
}

type contextKey struct{ name string }

var identityCtxKey = &contextKey{"identity"}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

type Options struct {
	Secret string
	// AllowTrustedHeader разрешает брать пользователя из заголовка, выставленного шлюзом
	AllowTrustedHeader bool
	UserHeader         string
	NameHeader         string
}

type Authenticator struct {
	secret      []byte
	allowHeader bool
	userHeader  string
	nameHeader  string
}

func New(opts Options) *Authenticator {
	a := &Authenticator{
		secret:      []byte(opts.Secret),
		allowHeader: opts.AllowTrustedHeader,
		userHeader:  opts.UserHeader,
		nameHeader:  opts.NameHeader,
	}
	if a.userHeader == "" {
		a.userHeader = DefaultUserHeader
	}
	if a.nameHeader == "" {
		a.nameHeader = DefaultNameHeader
	}
	return a
}

// Authenticate сначала проверяет Bearer токен, затем доверенный заголовок
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return Identity{}, fmt.Errorf("%w: bad authorization format", ErrInvalidToken)
		}
		return a.Verify(strings.TrimPrefix(header, "Bearer "))
	}

	if a.allowHeader {
		if userID := strings.TrimSpace(r.Header.Get(a.userHeader)); userID != "" {
			return Identity{UserID: userID, Name: strings.TrimSpace(r.Header.Get(a.nameHeader))}, nil
		}
	}
	return Identity{}, ErrNoCredentials
}

func (a *Authenticator) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	if len(a.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: token verification is not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	name := claims.Name
	if name == "" {
		name = claims.UserMetadata.Name
	}
	return Identity{UserID: claims.Subject, Name: name}, nil
}

// Issue выпускает токен тем же секретом. Используется только для локальной разработки.
func (a *Authenticator) Issue(id Identity, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
