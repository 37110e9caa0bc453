package service

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"videotube/internal/domain"
)

const accessTokenType = "access"

// JWTService firma y valida access tokens. Los access tokens no se persisten:
// su validez depende solo de la firma y de exp.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
}

type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func NewJWTService(secret, issuer string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "videotube"
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    issuer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// SignAccess emite un access token para userID válido desde now.
func (s *JWTService) SignAccess(userID string, now time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrInternal.Withf("jwt secret not configured")
	}
	claims := Claims{
		UserID:    userID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// signRefresh firma payload con HS256 y el secreto del servicio.
func (s *JWTService) signRefresh(payload string) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrInternal.Withf("jwt secret not configured")
	}
	sig, err := jwt.SigningMethodHS256.Sign(payload, s.secret)
	if err != nil {
		return "", domain.ErrInternal.With(err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// verifyRefresh comprueba que sig sea la firma de payload emitida por este servicio.
func (s *JWTService) verifyRefresh(payload, sig string) error {
	if len(s.secret) == 0 {
		return domain.ErrInternal.Withf("jwt secret not configured")
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || len(raw) == 0 {
		return domain.ErrMalformedToken
	}
	if err := jwt.SigningMethodHS256.Verify(payload, raw, s.secret); err != nil {
		return domain.ErrSignatureMismatch
	}
	return nil
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, domain.ErrInternal.Withf("jwt secret not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, domain.ErrMalformedToken
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(accessToken, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, domain.ErrSignatureMismatch
		}
		return Claims{}, domain.ErrMalformedToken.With(err)
	}
	if !s.isValidClaims(claims) {
		return Claims{}, domain.ErrMalformedToken
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if claims.TokenType != accessTokenType {
		return false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
