package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"raffle-board-backend/internal/feed"
	"raffle-board-backend/internal/features/seller/models"
	"raffle-board-backend/internal/features/seller/repository"
)

type postgresRepository struct {
	db        *sql.DB
	publisher *feed.Publisher
}

func NewPostgresRepository(db *sql.DB, publisher *feed.Publisher) repository.SellerRepository {
	return &postgresRepository{db: db, publisher: publisher}
}

const sellerColumns = "id, name, pin, active, commission_rate"

func scanSeller(scan func(...interface{}) error) (models.Seller, error) {
	var s models.Seller
	if err := scan(&s.ID, &s.Name, &s.PIN, &s.Active, &s.CommissionRate); err != nil {
		return models.Seller{}, err
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]models.Seller, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sellerColumns+" FROM sellers ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	defer rows.Close()

	var sellers []models.Seller
	for rows.Next() {
		s, err := scanSeller(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, s)
	}

	return sellers, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (models.Seller, error) {
	s, err := scanSeller(r.db.QueryRowContext(ctx,
		"SELECT "+sellerColumns+" FROM sellers WHERE id = $1", id).Scan)
	if err == sql.ErrNoRows {
		return models.Seller{}, repository.ErrSellerNotFound
	}
	if err != nil {
		return models.Seller{}, fmt.Errorf("failed to get seller: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) GetByPIN(ctx context.Context, pin string) (models.Seller, error) {
	s, err := scanSeller(r.db.QueryRowContext(ctx,
		"SELECT "+sellerColumns+" FROM sellers WHERE pin = $1 AND active", pin).Scan)
	if err == sql.ErrNoRows {
		return models.Seller{}, repository.ErrSellerNotFound
	}
	if err != nil {
		return models.Seller{}, fmt.Errorf("failed to get seller by pin: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) Insert(ctx context.Context, name, pin string) (models.Seller, error) {
	s, err := scanSeller(r.db.QueryRowContext(ctx, `
		INSERT INTO sellers (name, pin, active, commission_rate)
		VALUES ($1, $2, TRUE, $3)
		RETURNING `+sellerColumns,
		name, pin, models.DefaultCommissionRate).Scan)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return models.Seller{}, repository.ErrPinTaken
		}
		return models.Seller{}, fmt.Errorf("failed to insert seller: %w", err)
	}

	r.publisher.Publish(ctx, feed.TableSellers, feed.EventInsert, s)

	return s, nil
}

func (r *postgresRepository) Update(ctx context.Context, seller models.Seller) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sellers
		SET name = $2, pin = $3, active = $4, commission_rate = $5
		WHERE id = $1
	`, seller.ID, seller.Name, seller.PIN, seller.Active, seller.CommissionRate)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return repository.ErrPinTaken
		}
		return fmt.Errorf("failed to update seller: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return repository.ErrSellerNotFound
	}

	r.publisher.Publish(ctx, feed.TableSellers, feed.EventUpdate, seller)

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sellers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete seller: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return repository.ErrSellerNotFound
	}

	r.publisher.Publish(ctx, feed.TableSellers, feed.EventDelete, models.Seller{ID: id})

	return nil
}

func (r *postgresRepository) InsertApplication(ctx context.Context, app models.Application) (models.Application, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO seller_applications (full_name, id_number, address, phone, family_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at::text
	`, app.FullName, app.IDNumber, app.Address, app.Phone, app.FamilyPhone).
		Scan(&app.ID, &app.CreatedAt)
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to insert application: %w", err)
	}

	return app, nil
}

func (r *postgresRepository) ListApplications(ctx context.Context) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, full_name, id_number, address, phone, family_phone, created_at::text
		FROM seller_applications
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.ID, &app.FullName, &app.IDNumber, &app.Address,
			&app.Phone, &app.FamilyPhone, &app.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}
