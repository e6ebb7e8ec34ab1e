package repository

import (
	"context"
	"errors"

	"raffle-board-backend/internal/features/raffle/models"
)

var ErrConfigNotFound = errors.New("raffle config not found")

// ConfigRepository reads and writes the singleton configuration row.
type ConfigRepository interface {
	// Get returns the stored config. ErrConfigNotFound when no row exists yet.
	Get(ctx context.Context) (models.RaffleConfig, error)

	// Update writes the config row, creating it when absent. Last write wins.
	Update(ctx context.Context, cfg models.RaffleConfig) error
}
