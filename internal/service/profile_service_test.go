package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bibliobalance/internal/models"
)

func TestProfileService(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileStore()
	require.NoError(t, profiles.Create(ctx, &models.Profile{ID: testUser, Email: "reader@example.com", Username: "Reader"}))
	svc := NewProfileService(profiles, zap.NewNop())

	t.Run("get", func(t *testing.T) {
		p, err := svc.Get(ctx, testUser)
		require.NoError(t, err)
		assert.Equal(t, "Reader", p.Username)

		_, err = svc.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		p, err := svc.Update(ctx, testUser, models.ProfileUpdate{AvatarURL: ptr("https://example.com/me.png")})
		require.NoError(t, err)
		assert.Equal(t, "Reader", p.Username)
		require.NotNil(t, p.AvatarURL)
		assert.Equal(t, "https://example.com/me.png", *p.AvatarURL)

		p, err = svc.Update(ctx, testUser, models.ProfileUpdate{Username: ptr("  Bookworm ")})
		require.NoError(t, err)
		assert.Equal(t, "Bookworm", p.Username)
		assert.NotNil(t, p.AvatarURL)
	})

	t.Run("update validation", func(t *testing.T) {
		_, err := svc.Update(ctx, testUser, models.ProfileUpdate{AvatarURL: ptr("not a url")})
		assert.Error(t, err)
	})

	t.Run("update unknown profile", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", models.ProfileUpdate{Username: ptr("x")})
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, testUser))
		assert.ErrorIs(t, svc.Delete(ctx, testUser), ErrProfileNotFound)
	})
}
