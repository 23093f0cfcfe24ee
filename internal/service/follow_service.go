package service

import (
	"context"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// FollowStats are the social counters shown on a profile.
type FollowStats struct {
	Followers int64
	Following int64
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow makes follower follow the user named username. Following yourself or someone you
// already follow changes nothing; created reports whether an edge was added.
func (s *FollowService) Follow(ctx context.Context, follower *models.User, username string) (target *models.User, created bool, err error) {
	if follower == nil {
		return nil, false, models.NewUnauthorizedError("Login required")
	}
	target, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if target.ID == follower.ID {
		return target, false, nil
	}

	created, err = s.followRepo.Follow(ctx, follower.ID, target.ID)
	if err != nil {
		return target, false, err
	}
	if created {
		observability.ContentCreated.WithLabelValues("follow").Inc()
		middleware.Logger.InfoContext(ctx, "Follow created",
			slog.Uint64("user_id", uint64(follower.ID)),
			slog.Uint64("author_id", uint64(target.ID)),
		)
	}
	return target, created, nil
}

// Unfollow removes the edge if it exists; removed reports whether one did.
func (s *FollowService) Unfollow(ctx context.Context, follower *models.User, username string) (target *models.User, removed bool, err error) {
	if follower == nil {
		return nil, false, models.NewUnauthorizedError("Login required")
	}
	target, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	removed, err = s.followRepo.Unfollow(ctx, follower.ID, target.ID)
	if err != nil {
		return target, false, err
	}
	return target, removed, nil
}

// IsFollowing is false for anonymous viewers and for viewers looking at themselves.
func (s *FollowService) IsFollowing(ctx context.Context, viewer *models.User, authorID uint) (bool, error) {
	if viewer == nil || viewer.ID == authorID {
		return false, nil
	}
	return s.followRepo.IsFollowing(ctx, viewer.ID, authorID)
}

func (s *FollowService) Stats(ctx context.Context, userID uint) (FollowStats, error) {
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return FollowStats{}, err
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return FollowStats{}, err
	}
	return FollowStats{Followers: followers, Following: following}, nil
}
