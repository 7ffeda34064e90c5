package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()

	t.Run("ensure user creates the identity once", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		req.NoError(f.userSvc.EnsureUser(ctx, "u1", "alice"))
		req.NoError(f.userSvc.EnsureUser(ctx, "u1", "renamed"))

		user, err := f.users.GetByID(ctx, "u1")
		req.NoError(err)
		req.Equal("alice", user.Username)

		req.ErrorIs(f.userSvc.EnsureUser(ctx, "", "nobody"), domain.ErrValidation)
	})

	t.Run("profile update evicts the cached profile", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "u1")

		before, err := f.userSvc.GetProfile(ctx, "u1")
		req.NoError(err)
		req.Equal("User u1", before.FullName)

		// When
		_, err = f.userSvc.UpsertProfile(ctx, "u1", "", &domain.UpdateProfileRequest{FullName: "  Alice  "})
		req.NoError(err)

		// Then
		after, err := f.userSvc.GetProfile(ctx, "u1")
		req.NoError(err)
		req.Equal("Alice", after.FullName)
		req.Equal("u1", after.Username)
	})

	t.Run("profile validation", func(t *testing.T) {
		f := newFixture(t, "u1")

		_, err := f.userSvc.UpsertProfile(ctx, "u1", "u1", &domain.UpdateProfileRequest{FullName: strings.Repeat("x", 101)})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown profile is not found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.userSvc.GetProfile(ctx, "nobody")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list excludes the caller", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b", "c")

		users, err := f.userSvc.ListUsers(ctx, "b")
		req.NoError(err)
		req.Len(users, 2)
		req.Equal("a", users[0].ID)
		req.Equal("c", users[1].ID)
	})

	t.Run("resolve mixes cache hits and store reads", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")

		_, err := f.userSvc.GetProfile(ctx, "a")
		req.NoError(err)

		profiles, err := f.userSvc.ResolveProfiles(ctx, []string{"a", "b", "ghost", "a"})
		req.NoError(err)
		req.Len(profiles, 2)
		req.Equal("b", profiles["b"].Username)

		cached, err := f.profiles.Get(ctx, "b")
		req.NoError(err)
		req.Equal("b", cached.ID)
	})
}
