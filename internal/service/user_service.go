package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/domain"
	"videotube/internal/repository"
)

// UserService coordina registro y login de usuarios.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
	now    func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger: logger,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateUserInput struct {
	Username  string
	Email     string
	FullName  string
	Password  string
	AvatarURL string
	CoverURL  string
}

const minPasswordLength = 8

func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	username := normalizeLogin(input.Username)
	email := normalizeLogin(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	password := strings.TrimSpace(input.Password)

	if !isValidUsername(username) {
		return domain.User{}, domain.ErrInvalidInput.Withf("username must be 3-30 letters, digits, '_' or '-'")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.User{}, domain.ErrInvalidInput.Withf("invalid email")
	}
	if fullName == "" {
		return domain.User{}, domain.ErrInvalidInput.Withf("full name is required")
	}
	if len(password) < minPasswordLength {
		return domain.User{}, domain.ErrInvalidInput.Withf("password must have at least %d characters", minPasswordLength)
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, domain.ErrInternal.With(err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    strings.TrimSpace(input.AvatarURL),
		CoverURL:     strings.TrimSpace(input.CoverURL),
		PasswordHash: string(hashBytes),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return domain.User{}, err
		}
		return domain.User{}, domain.ErrStore.With(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate acepta username o email. Usuario inexistente y password incorrecto
// devuelven el mismo error.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	login = normalizeLogin(login)
	password = strings.TrimSpace(password)
	if login == "" || password == "" {
		return domain.User{}, domain.ErrBadCredentials
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, domain.ErrBadCredentials
		}
		return domain.User{}, domain.ErrStore.With(err)
	}
	if user.PasswordHash == "" {
		return domain.User{}, domain.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrBadCredentials
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByID(ctx, domain.NormalizeID(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, domain.ErrStore.With(err)
	}
	return user, nil
}

func normalizeLogin(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func isValidUsername(v string) bool {
	if len(v) < 3 || len(v) > 30 {
		return false
	}
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}
