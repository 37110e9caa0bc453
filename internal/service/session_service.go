package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/metrics"
	"videotube/internal/repository"
)

const refreshSecretBytes = 32

// SessionService emite, rota y revoca pares de tokens.
// Revoke no invalida access tokens ya emitidos: valen hasta su exp.
type SessionService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	store      RefreshTokenStore
	jwt        *JWTService
	refreshTTL time.Duration
	metrics    *metrics.Metrics
	now        func() time.Time
	random     io.Reader
}

func NewSessionService(logger *zap.Logger, users repository.UserRepository, store RefreshTokenStore, jwtService *JWTService, refreshTTL time.Duration, m *metrics.Metrics) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryRefreshTokenStore()
	}
	if refreshTTL <= 0 {
		refreshTTL = 240 * time.Hour
	}
	return &SessionService{
		logger:     logger,
		users:      users,
		store:      store,
		jwt:        jwtService,
		refreshTTL: refreshTTL,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
		random:     rand.Reader,
	}
}

// Issue emite un par nuevo y reemplaza cualquier refresh token anterior del usuario.
func (s *SessionService) Issue(ctx context.Context, userID string) (domain.TokenPair, error) {
	if s.users == nil || s.jwt == nil {
		return domain.TokenPair{}, domain.ErrInternal.Withf("session service not configured")
	}
	userID = domain.NormalizeID(userID)
	if userID == "" {
		return domain.TokenPair{}, domain.ErrInvalidInput.Withf("user id is required")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, domain.ErrUserNotFound
		}
		return domain.TokenPair{}, domain.ErrStore.With(err)
	}

	now := s.now()
	access, err := s.jwt.SignAccess(userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, ref, err := s.newRefresh(userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.store.SetRefreshRef(ctx, ref); err != nil {
		return domain.TokenPair{}, domain.ErrStore.With(err)
	}
	s.metrics.TokenEvent("issued")
	return s.pair(access, refresh), nil
}

// Rotate canjea un refresh token vigente por un par nuevo. Presentar un token
// firmado por el servicio que no es el vigente revoca la sesión completa.
func (s *SessionService) Rotate(ctx context.Context, presented string) (domain.TokenPair, error) {
	if s.users == nil || s.jwt == nil {
		return domain.TokenPair{}, domain.ErrInternal.Withf("session service not configured")
	}
	userID, payload, sig, ok := parseRefreshToken(presented)
	if !ok {
		return domain.TokenPair{}, domain.ErrMalformedToken
	}
	// Un token que este servicio no firmó no toca la sesión vigente.
	if err := s.jwt.verifyRefresh(payload, sig); err != nil {
		s.logger.Warn("refresh token with invalid signature", zap.String("user_id", userID))
		s.metrics.TokenEvent("invalid_signature")
		return domain.TokenPair{}, err
	}
	presentedHash := hashRefreshToken(presented)

	ref, found, err := s.store.GetRefreshRef(ctx, userID)
	if err != nil {
		return domain.TokenPair{}, domain.ErrStore.With(err)
	}
	if !found || subtle.ConstantTimeCompare([]byte(ref.TokenHash), []byte(presentedHash)) != 1 {
		return domain.TokenPair{}, s.reuseDetected(ctx, userID)
	}

	now := s.now()
	if ref.Expired(now) {
		if err := s.store.ClearRefreshRef(ctx, userID); err != nil {
			s.logger.Warn("clear expired refresh ref failed", zap.String("user_id", userID), zap.Error(err))
		}
		s.metrics.TokenEvent("expired")
		return domain.TokenPair{}, domain.ErrExpiredToken
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.store.ClearRefreshRef(ctx, userID)
			return domain.TokenPair{}, domain.ErrUserNotFound
		}
		return domain.TokenPair{}, domain.ErrStore.With(err)
	}

	access, err := s.jwt.SignAccess(userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, next, err := s.newRefresh(userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	swapped, err := s.store.SwapRefreshRef(ctx, userID, presentedHash, next)
	if err != nil {
		return domain.TokenPair{}, domain.ErrStore.With(err)
	}
	if !swapped {
		// Otra rotación con el mismo token ganó la carrera.
		return domain.TokenPair{}, s.reuseDetected(ctx, userID)
	}
	s.metrics.TokenEvent("rotated")
	return s.pair(access, refresh), nil
}

// Revoke borra la referencia vigente. Es idempotente.
func (s *SessionService) Revoke(ctx context.Context, userID string) error {
	userID = domain.NormalizeID(userID)
	if userID == "" {
		return domain.ErrInvalidInput.Withf("user id is required")
	}
	if err := s.store.ClearRefreshRef(ctx, userID); err != nil {
		return domain.ErrStore.With(err)
	}
	s.metrics.TokenEvent("revoked")
	return nil
}

// ParseAccessToken valida un access token y devuelve sus claims.
func (s *SessionService) ParseAccessToken(accessToken string) (Claims, error) {
	if s.jwt == nil {
		return Claims{}, domain.ErrInternal.Withf("session service not configured")
	}
	return s.jwt.ParseAccessToken(accessToken)
}

func (s *SessionService) reuseDetected(ctx context.Context, userID string) error {
	s.logger.Warn("refresh token reuse detected, revoking session", zap.String("user_id", userID))
	s.metrics.TokenEvent("reuse_detected")
	if err := s.store.ClearRefreshRef(ctx, userID); err != nil {
		s.logger.Error("revoke session after reuse failed", zap.String("user_id", userID), zap.Error(err))
		return domain.ErrTokenReuse.With(err)
	}
	return domain.ErrTokenReuse
}

func (s *SessionService) newRefresh(userID string, now time.Time) (string, domain.RefreshRef, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", domain.RefreshRef{}, domain.ErrInternal.With(err)
	}
	payload := userID + "." + base64.RawURLEncoding.EncodeToString(buf)
	sig, err := s.jwt.signRefresh(payload)
	if err != nil {
		return "", domain.RefreshRef{}, err
	}
	token := payload + "." + sig
	return token, domain.RefreshRef{
		UserID:    userID,
		TokenHash: hashRefreshToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

func (s *SessionService) pair(access, refresh string) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
	}
}

// parseRefreshToken separa "<userID>.<secreto>.<firma>" y comprueba el largo del secreto.
// payload es la parte firmada: "<userID>.<secreto>".
func parseRefreshToken(token string) (userID, payload, sig string, ok bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[2] == "" {
		return "", "", "", false
	}
	userID = domain.NormalizeID(parts[0])
	if userID == "" || userID != parts[0] {
		return "", "", "", false
	}
	secret, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(secret) != refreshSecretBytes {
		return "", "", "", false
	}
	return userID, parts[0] + "." + parts[1], parts[2], true
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
