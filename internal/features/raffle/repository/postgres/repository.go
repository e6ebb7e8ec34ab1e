package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"raffle-board-backend/internal/feed"
	"raffle-board-backend/internal/features/raffle/models"
	"raffle-board-backend/internal/features/raffle/repository"
)

// The config lives in a single-row table keyed by id=1, with the payload in
// one jsonb column so older and newer clients can share it.
const configRowID = 1

type postgresRepository struct {
	db        *sql.DB
	publisher *feed.Publisher
}

func NewPostgresRepository(db *sql.DB, publisher *feed.Publisher) repository.ConfigRepository {
	return &postgresRepository{db: db, publisher: publisher}
}

func (r *postgresRepository) Get(ctx context.Context) (models.RaffleConfig, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM raffle_config WHERE id = $1", configRowID).Scan(&data)
	if err == sql.ErrNoRows {
		return models.RaffleConfig{}, repository.ErrConfigNotFound
	}
	if err != nil {
		return models.RaffleConfig{}, fmt.Errorf("failed to get raffle config: %w", err)
	}

	var cfg models.RaffleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.RaffleConfig{}, fmt.Errorf("failed to decode raffle config: %w", err)
	}

	return cfg, nil
}

func (r *postgresRepository) Update(ctx context.Context, cfg models.RaffleConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal raffle config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO raffle_config (id, data)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, configRowID, data)
	if err != nil {
		return fmt.Errorf("failed to update raffle config: %w", err)
	}

	r.publisher.Publish(ctx, feed.TableConfig, feed.EventUpdate, cfg)

	return nil
}
