package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/repository"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "buildbuddy"

// SessionEvent reports a change of a user's signed-in state.
type SessionEvent struct {
	UserID    uuid.UUID
	SignedIn  bool
	IsLoading bool
}

// Oracle answers "who is the current user" and announces sign-in changes.
type Oracle interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context, token string) error
	Subscribe(fn func(SessionEvent)) (unsubscribe func())
}

// Service is the full identity surface used by the HTTP layer.
type Service interface {
	Oracle
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

type service struct {
	users       repository.UserRepository
	revocations RevocationList
	hmacSecret  []byte
	tokenTTL    time.Duration
	now         func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]func(SessionEvent)
}

var _ Service = (*service)(nil)

func NewService(users repository.UserRepository, revocations RevocationList, secret []byte, tokenTTL time.Duration) Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &service{
		users:       users,
		revocations: revocations,
		hmacSecret:  secret,
		tokenTTL:    tokenTTL,
		now:         time.Now,
		subs:        map[int]func(SessionEvent){},
	}
}

func (s *service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.L().Info("register called", zap.String("email", email))

	ph, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(ph),
		Name:         strings.TrimSpace(name),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.New(appErr.CodeConflict, "email already registered")
		}
		return nil, err
	}

	logger.L().Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.users.GetByEmail(ctx, email, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, err
	}

	// a failed attempt emits no outcome event, the user's existing sessions are unaffected
	s.publish(SessionEvent{UserID: user.ID, IsLoading: true})

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.ID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})
	signed, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", nil, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}

	logger.L().Info("user signed in", zap.String("user_id", user.ID.String()))
	s.publish(SessionEvent{UserID: user.ID, SignedIn: true})
	return signed, &user, nil
}

// Authenticate verifies a bearer token and returns its subject.
func (s *service) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := s.parse(token)
	if err != nil {
		return uuid.Nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return uuid.Nil, appErr.Wrap(err, appErr.CodeUnavailable, "revocation lookup failed")
	}
	if revoked {
		return uuid.Nil, appErr.New(appErr.CodeUnauthorized, "token revoked")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeUnauthorized, "invalid token subject")
	}
	return id, nil
}

// CurrentUser resolves the user bound to ctx by the auth middleware.
func (s *service) CurrentUser(ctx context.Context) (*models.User, error) {
	id, ok := UserIDFrom(ctx)
	if !ok {
		return nil, appErr.AuthRequired()
	}
	var user models.User
	if err := s.users.GetByID(ctx, id, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.AuthRequired()
		}
		return nil, err
	}
	return &user, nil
}

// Logout revokes token for the rest of its lifetime and announces sign-out.
func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "revoke token failed")
	}
	if id, err := uuid.Parse(claims.Subject); err == nil {
		logger.L().Info("user signed out", zap.String("user_id", id.String()))
		s.publish(SessionEvent{UserID: id})
	}
	return nil
}

func (s *service) Subscribe(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *service) publish(ev SessionEvent) {
	s.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.hmacSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "token expired")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
