package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/newsgate/internal/application"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
	"github.com/bryanwahyu/newsgate/internal/domain/users"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	minPasswordLength = 8
	tokenType         = "Bearer"
)

var errInvalidCredentials = faults.Unauthorized("auth.Login", "invalid credentials")

// Service handles registration, login and bearer-token verification.
type Service struct {
	Users    users.Repository
	Clock    application.Clock
	NewID    func() string
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Register creates an account. The email is normalised to lower case.
func (s *Service) Register(ctx context.Context, email, password string) (*users.User, error) {
	const op = "auth.Register"
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, faults.Validation(op, err.Error())
	}
	if len(password) < minPasswordLength {
		return nil, faults.Validation(op, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, faults.Persistence(op, err)
	}
	if existing != nil {
		return nil, faults.DuplicateIdentity(op, "email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}
	u := &users.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// two concurrent registrations can both pass the lookup above
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, faults.DuplicateIdentity(op, "email already exists")
		}
		return nil, faults.Persistence(op, err)
	}
	return u, nil
}

// Login checks the credentials and issues a signed token whose subject is the user id.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	const op = "auth.Login"
	email, err := normaliseEmail(email)
	if err != nil {
		return Token{}, errInvalidCredentials
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return Token{}, faults.Persistence(op, err)
	}
	if u == nil {
		return Token{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Token{}, errInvalidCredentials
	}

	now := s.now()
	if err := s.Users.TouchLogin(ctx, u.ID, now); err != nil {
		return Token{}, faults.Persistence(op, err)
	}

	exp := now.Add(s.ttl())
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("%s: sign token: %w", op, err)
	}
	return Token{Token: signed, TokenType: tokenType, ExpiresAt: exp}, nil
}

// VerifyToken returns the caller id carried by a token issued by Login.
func (s *Service) VerifyToken(raw string) (string, error) {
	const op = "auth.VerifyToken"
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, opts...)
	if err != nil {
		return "", faults.New(faults.KindUnauthorized, op, "invalid or expired token", err)
	}
	if c.Subject == "" {
		return "", faults.Unauthorized(op, "token has no subject")
	}
	return c.Subject, nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("email is not valid")
	}
	return email, nil
}

func (s *Service) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s *Service) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return s.TokenTTL
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return application.NewID()
	}
	return s.NewID()
}
