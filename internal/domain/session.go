package domain

import "time"

// RefreshRef es la referencia vigente al refresh token de un usuario.
// Solo se guarda el hash del token; hay a lo sumo una por usuario.
type RefreshRef struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reporta si la referencia venció en now.
func (r RefreshRef) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
