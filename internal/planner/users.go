package planner

import (
	"context"
	"errors"
	"strconv"

	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
)

const DefaultLeaderboardSize = 10

func (s *Service) Profile(ctx context.Context, id Identity) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeErr("load user", err)
	}
	return user, nil
}

// Leaderboard returns the top users by xp. Cache failures fall back to the
// store.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	log := s.log.WithField("operation", "planner.Leaderboard")

	if s.cache != nil {
		entries, ok, err := s.cache.GetLeaderboard(ctx, limit)
		if err != nil {
			log.WithError(err).Warn("leaderboard cache read failed")
		} else if ok {
			return entries, nil
		}
	}

	// concurrent misses for the same size share one query
	v, err, _ := s.leaderboardLoads.Do(strconv.Itoa(limit), func() (any, error) {
		entries, err := s.users.TopByXP(ctx, limit)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetLeaderboard(ctx, limit, entries); err != nil {
				log.WithError(err).Warn("leaderboard cache write failed")
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, storeErr("leaderboard", err)
	}
	return v.([]models.LeaderboardEntry), nil
}
