package service

import (
	"context"
	"time"

	apperrors "raffle-board-backend/internal/common/errors"
	"raffle-board-backend/internal/common/logger"
	"raffle-board-backend/internal/feed"
	"raffle-board-backend/internal/features/raffle/models"
	"raffle-board-backend/internal/features/raffle/repository"
)

// Cache is the slice of the cache service this feature uses.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const (
	configCacheKey = "raffle:config"
	configCacheTTL = 5 * time.Minute
)

type RaffleService interface {
	// Current returns the active configuration, falling back to defaults when
	// the store has no row or cannot be read.
	Current(ctx context.Context) models.RaffleConfig

	// Update replaces the configuration. Last write wins.
	Update(ctx context.Context, cfg models.RaffleConfig) error

	// PublishWinner appends a draw result to the winners list.
	PublishWinner(ctx context.Context, number, name, prize string) error

	// Countdown reports the remaining time to the configured draw.
	Countdown(ctx context.Context) models.Countdown

	// HandleFeedEvent reacts to config rows changed by other instances.
	HandleFeedEvent(event feed.Event)
}

type raffleService struct {
	repo  repository.ConfigRepository
	cache Cache
}

func NewRaffleService(repo repository.ConfigRepository, cacheService Cache) RaffleService {
	return &raffleService{repo: repo, cache: cacheService}
}

func (s *raffleService) Current(ctx context.Context) models.RaffleConfig {
	var cached models.RaffleConfig
	if err := s.cache.Get(ctx, configCacheKey, &cached); err == nil {
		return cached.MergeDefaults()
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if err != repository.ErrConfigNotFound {
			// Transient read failure: serve defaults, the view degrades
			// instead of failing.
			logger.Error().Err(err).Msg("Failed to load raffle config, using defaults")
		}
		return models.Default()
	}

	cfg = cfg.MergeDefaults()
	if err := s.cache.Set(ctx, configCacheKey, cfg, configCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache raffle config")
	}

	return cfg
}

func (s *raffleService) Update(ctx context.Context, cfg models.RaffleConfig) error {
	cfg = cfg.MergeDefaults()

	if err := s.repo.Update(ctx, cfg); err != nil {
		return apperrors.NewDatabaseError("update raffle config", err)
	}

	if err := s.cache.Set(ctx, configCacheKey, cfg, configCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache raffle config")
	}

	return nil
}

func (s *raffleService) PublishWinner(ctx context.Context, number, name, prize string) error {
	cfg := s.Current(ctx)
	cfg.Winners = append(cfg.Winners, models.Winner{
		Number: number,
		Name:   name,
		Prize:  prize,
		Date:   time.Now().Format("2006-01-02"),
	})

	return s.Update(ctx, cfg)
}

func (s *raffleService) Countdown(ctx context.Context) models.Countdown {
	return s.Current(ctx).CountdownAt(time.Now())
}

func (s *raffleService) HandleFeedEvent(event feed.Event) {
	var cfg models.RaffleConfig
	if err := event.DecodeRow(&cfg); err != nil {
		logger.Error().Err(err).Msg("Failed to decode config feed event")
		return
	}

	// Another instance saved the config: refresh the local cache so reads
	// converge without waiting for the TTL.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, configCacheKey, cfg.MergeDefaults(), configCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to refresh config cache from feed")
	}
}
