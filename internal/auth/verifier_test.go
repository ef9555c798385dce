package auth_test

import (
	"context"
	"testing"
	"time"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/database"
	"hangout/internal/database/dbtest"
	"hangout/internal/repository"

	"github.com/stretchr/testify/require"
)

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Minute, Issuer: "hangout"}
}

func TestJWTVerifier(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := dbtest.New(t)
	u, err := database.CreateUser(db, "pim", "")
	req.NoError(err)
	req.NoError(db.Model(u).Updates(map[string]any{"display_name": "", "first_name": "Pim", "last_name": "S", "profile_picture": "https://cdn/pim.png"}).Error)

	cfg := testJWT()
	v := auth.NewJWTVerifier(cfg, repository.NewUserRepository(db))

	token, err := auth.GenerateAccessToken(cfg, u.ID, u.Username)
	req.NoError(err)
	p, err := v.Verify(ctx, token)
	req.NoError(err)
	req.Equal(auth.Principal{UserID: u.ID, Username: "pim", DisplayName: "Pim S", ProfilePicture: "https://cdn/pim.png"}, *p)

	_, err = v.Verify(ctx, "")
	req.ErrorIs(err, auth.ErrInvalidToken)
	_, err = v.Verify(ctx, "garbage")
	req.ErrorIs(err, auth.ErrInvalidToken)

	ghost, err := auth.GenerateAccessToken(cfg, 999, "ghost")
	req.NoError(err)
	_, err = v.Verify(ctx, ghost)
	req.ErrorIs(err, auth.ErrInvalidToken)
}

func TestParseAccessToken_RejectsExpiredAndForeign(t *testing.T) {
	req := require.New(t)
	cfg := testJWT()

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	token, err := auth.GenerateAccessToken(&expired, 1, "ann")
	req.NoError(err)
	_, err = auth.ParseAccessToken(cfg, token)
	req.ErrorIs(err, auth.ErrInvalidToken)

	other := *cfg
	other.AccessSecret = "someone-else"
	token, err = auth.GenerateAccessToken(&other, 1, "ann")
	req.NoError(err)
	_, err = auth.ParseAccessToken(cfg, token)
	req.ErrorIs(err, auth.ErrInvalidToken)

	token, err = auth.GenerateAccessToken(cfg, 1, "ann")
	req.NoError(err)
	claims, err := auth.ParseAccessToken(cfg, token)
	req.NoError(err)
	req.Equal(uint(1), claims.UserID)
	req.Equal("ann", claims.Username)
}
