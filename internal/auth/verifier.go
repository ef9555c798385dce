package auth

import (
	"context"
	"errors"
	"fmt"

	"hangout/config"
	"hangout/internal/models"

	"gorm.io/gorm"
)

// Principal is the identity a chat or notification connection acts as.
type Principal struct {
	UserID         uint
	Username       string
	DisplayName    string
	ProfilePicture string
}

func PrincipalFromUser(u *models.User) Principal {
	return Principal{
		UserID:         u.ID,
		Username:       u.Username,
		DisplayName:    u.Name(),
		ProfilePicture: u.ProfilePicture,
	}
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// JWTVerifier accepts access tokens whose user still exists.
type JWTVerifier struct {
	cfg   *config.JWTConfig
	users userLookup
}

func NewJWTVerifier(cfg *config.JWTConfig, users userLookup) *JWTVerifier {
	return &JWTVerifier{cfg: cfg, users: users}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := ParseAccessToken(v.cfg, token)
	if err != nil {
		return nil, err
	}
	u, err := v.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", claims.UserID, err)
	}
	p := PrincipalFromUser(u)
	return &p, nil
}
