// Package auth authenticates back-office administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/db"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

const defaultAccessTTL = 12 * time.Hour

var (
	errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
	errInvalidToken       = common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, nil)
)

type queryProvider interface {
	GetAdminByUsername(ctx context.Context, username string) (dbgen.Admin, error)
	UpsertAdmin(ctx context.Context, arg dbgen.UpsertAdminParams) error
}

// Config configures the Service.
type Config struct {
	Queries        queryProvider
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// Session is returned after a successful login.
type Session struct {
	Username    string    `json:"username"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service verifies admin credentials and issues HS256 access tokens.
type Service struct {
	queries   queryProvider
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	rules     tokenRules
}

// NewService builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "loja-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "loja-admin"
	}
	return &Service{
		queries:   cfg.Queries,
		secret:    []byte(secret),
		accessTTL: ttl,
		now:       time.Now,
		rules: tokenRules{
			issuer:    issuer,
			audience:  audience,
			clockSkew: max(cfg.ClockSkew, 0),
			algorithm: jwa.HS256,
		},
	}, nil
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Login checks the password against the stored argon2id hash.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, errInvalidCredentials
	}
	admin, err := s.queries.GetAdminByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return Session{}, errInvalidCredentials
		}
		return Session{}, fmt.Errorf("get admin: %w", err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, admin.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return Session{}, errInvalidCredentials
	}
	token, exp, err := s.signAccessToken(admin.Username)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Username: admin.Username, AccessToken: token, ExpiresAt: exp}, nil
}

// EnsureAdmin creates or re-keys an administrator account.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return errors.New("auth: admin username and a password of at least 8 characters are required")
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.queries.UpsertAdmin(ctx, dbgen.UpsertAdminParams{Username: username, PasswordHash: hash})
}

// ParseAccessToken validates token and returns the admin username.
func (s *Service) ParseAccessToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errInvalidToken
	}
	alg, err := signingAlgorithm(token)
	if err != nil {
		return "", errInvalidToken.WithErr(err)
	}
	if alg != s.rules.algorithm {
		return "", errInvalidToken.WithErr(fmt.Errorf("unexpected token algorithm %s", alg))
	}
	parsed, err := jwt.ParseString(token, jwt.WithKey(alg, s.secret), jwt.WithValidate(false))
	if err != nil {
		return "", errInvalidToken.WithErr(err)
	}
	if err := s.rules.check(parsed, alg, s.now()); err != nil {
		return "", errInvalidToken.WithErr(err)
	}
	return parsed.Subject(), nil
}

func (s *Service) signAccessToken(username string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	tok, err := jwt.NewBuilder().
		Subject(username).
		Issuer(s.rules.issuer).
		Audience([]string{s.rules.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.rules.clockSkew)).
		Expiration(exp).
		Claim(claimRole, roleAdmin).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(s.rules.algorithm, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), exp, nil
}
