package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-dm/internal/audit"
	"github.com/weiawesome/wes-io-dm/internal/cache"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/repository"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/metrics"
)

// userServiceImpl implements UserService with a cache-aside profile cache.
type userServiceImpl struct {
	repo       repository.UserRepository
	profiles   cache.ProfileCache
	profileTTL time.Duration
	sf         singleflight.Group
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, profiles cache.ProfileCache, profileTTL time.Duration) UserService {
	return &userServiceImpl{
		repo:       repo,
		profiles:   profiles,
		profileTTL: profileTTL,
	}
}

// EnsureUser inserts the identity if it has never been seen. A cached
// profile proves the row exists, so the common path touches no database.
func (s *userServiceImpl) EnsureUser(ctx context.Context, userID, username string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if _, err := s.profiles.Get(ctx, userID); err == nil {
		return nil
	}

	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		if username == "" {
			username = userID
		}
		user = &domain.User{ID: userID, Username: username}
		err = s.repo.Upsert(ctx, user)
	}
	if err != nil {
		return domain.TimeoutAware(err)
	}

	s.cacheProfile(ctx, user.Profile())
	return nil
}

// UpsertProfile updates the caller's profile fields.
func (s *userServiceImpl) UpsertProfile(ctx context.Context, userID, username string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	req.FullName = strings.TrimSpace(req.FullName)
	req.AvatarRef = strings.TrimSpace(req.AvatarRef)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if username == "" {
		existing, err := s.repo.GetByID(ctx, userID)
		switch {
		case err == nil:
			username = existing.Username
		case errors.Is(err, domain.ErrNotFound):
			username = userID
		default:
			return nil, domain.TimeoutAware(err)
		}
	}

	user := &domain.User{
		ID:        userID,
		Username:  username,
		FullName:  req.FullName,
		AvatarRef: req.AvatarRef,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		l.Error().Err(err).Msg("failed to upsert profile")
		return nil, domain.TimeoutAware(err)
	}

	if err := s.profiles.Delete(ctx, userID); err != nil {
		l.Warn().Err(err).Msg("failed to evict cached profile")
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return user, nil
}

// GetProfile returns the public profile of userID.
func (s *userServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if cached, err := s.profiles.Get(ctx, userID); err == nil {
		metrics.CacheLookupsTotal.WithLabelValues("profile", metrics.CacheHit).Inc()
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}
	metrics.CacheLookupsTotal.WithLabelValues("profile", metrics.CacheMiss).Inc()

	ch := s.sf.DoChan("profile:"+userID, func() (interface{}, error) {
		fetchCtx, cancel := sharedContext(ctx, 0)
		defer cancel()

		user, err := s.repo.GetByID(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		profile := user.Profile()
		s.cacheProfile(fetchCtx, profile)
		return &profile, nil
	})
	result, err := awaitShared(ctx, ch)
	if err != nil {
		return nil, domain.TimeoutAware(err)
	}

	return result.(*domain.Profile), nil
}

// ListUsers returns every known user except the caller.
func (s *userServiceImpl) ListUsers(ctx context.Context, callerID string) ([]domain.Profile, error) {
	users, err := s.repo.List(ctx, callerID, 0)
	if err != nil {
		return nil, domain.TimeoutAware(err)
	}

	return lo.Map(users, func(u *domain.User, _ int) domain.Profile {
		return u.Profile()
	}), nil
}

// ResolveProfiles serves what it can from the cache and loads the rest in
// one query. Ids that do not resolve are left out of the result.
func (s *userServiceImpl) ResolveProfiles(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	ids = lo.Uniq(ids)
	found := make(map[string]domain.Profile, len(ids))

	var missing []string
	for _, id := range ids {
		p, err := s.profiles.Get(ctx, id)
		if err == nil {
			found[id] = *p
			continue
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("cache get error")
		}
		missing = append(missing, id)
	}
	metrics.CacheLookupsTotal.WithLabelValues("profile", metrics.CacheHit).Add(float64(len(found)))
	metrics.CacheLookupsTotal.WithLabelValues("profile", metrics.CacheMiss).Add(float64(len(missing)))

	if len(missing) == 0 {
		return found, nil
	}

	sort.Strings(missing)
	ch := s.sf.DoChan("profiles:"+strings.Join(missing, ","), func() (interface{}, error) {
		fetchCtx, cancel := sharedContext(ctx, 0)
		defer cancel()

		users, err := s.repo.GetByIDs(fetchCtx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		for _, u := range users {
			s.cacheProfile(fetchCtx, u.Profile())
		}
		return users, nil
	})
	result, err := awaitShared(ctx, ch)
	if err != nil {
		return nil, domain.TimeoutAware(err)
	}

	for id, u := range result.(map[string]*domain.User) {
		found[id] = u.Profile()
	}
	return found, nil
}

func (s *userServiceImpl) cacheProfile(ctx context.Context, p domain.Profile) {
	if err := s.profiles.Set(ctx, &p, s.profileTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, p.ID).Msg("cache set error")
	}
}
