package repository

import (
	"context"
	"errors"

	"raffle-board-backend/internal/features/seller/models"
)

var (
	ErrSellerNotFound = errors.New("seller not found")
	ErrPinTaken       = errors.New("pin already in use")
)

// SellerRepository is the remote-store surface for sellers and seller
// applications.
type SellerRepository interface {
	List(ctx context.Context) ([]models.Seller, error)
	GetByID(ctx context.Context, id string) (models.Seller, error)

	// GetByPIN resolves an active seller by PIN. ErrSellerNotFound for
	// unknown or inactive PINs.
	GetByPIN(ctx context.Context, pin string) (models.Seller, error)

	// Insert creates a seller with a store-assigned id and returns the row.
	// ErrPinTaken when an active seller already uses the PIN.
	Insert(ctx context.Context, name, pin string) (models.Seller, error)

	Update(ctx context.Context, seller models.Seller) error

	// Delete removes the seller. Tickets keep their seller reference; it
	// resolves to the organic bucket from then on.
	Delete(ctx context.Context, id string) error

	InsertApplication(ctx context.Context, app models.Application) (models.Application, error)
	ListApplications(ctx context.Context) ([]models.Application, error)
}
