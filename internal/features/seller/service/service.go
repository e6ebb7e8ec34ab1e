package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"raffle-board-backend/internal/common/cache"
	"raffle-board-backend/internal/common/config"
	apperrors "raffle-board-backend/internal/common/errors"
	"raffle-board-backend/internal/common/logger"
	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/common/validation"
	"raffle-board-backend/internal/feed"
	raffleservice "raffle-board-backend/internal/features/raffle/service"
	"raffle-board-backend/internal/features/seller/models"
	"raffle-board-backend/internal/features/seller/repository"
	ticketmodels "raffle-board-backend/internal/features/ticket/models"
)

const (
	referralKeyPrefix = "ref:"
	referralTTL       = 30 * 24 * time.Hour

	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// Cache is the slice of the cache service this feature uses: referral
// capture and session storage.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// BoardProvider exposes the current ticket board for attribution queries.
type BoardProvider interface {
	Snapshot() []ticketmodels.Ticket
}

// LoginResult is a successful authentication: the bearer token plus the
// resolved role, and the seller row for seller logins.
type LoginResult struct {
	Token   string              `json:"token"`
	Role    middleware.Role     `json:"role"`
	Seller  *models.Seller      `json:"seller,omitempty"`
	Session *middleware.Session `json:"-"`
}

type SellerService interface {
	middleware.SessionStore

	// Bootstrap loads the seller mirror from the store.
	Bootstrap(ctx context.Context) error

	List(ctx context.Context) []models.Seller
	Create(ctx context.Context, name, pin string) (models.Seller, error)
	Update(ctx context.Context, seller models.Seller) error
	Delete(ctx context.Context, id string) error

	// Login authenticates either credential class: the administrator PIN or
	// an active seller PIN. Failures are reported generically.
	Login(ctx context.Context, pin string) (*LoginResult, error)

	// CaptureReferral persists the referral a visiting device followed, so
	// later reservations from that device credit the referring seller.
	CaptureReferral(ctx context.Context, deviceID, ref string) error

	// ResolveReferral returns the captured referral for a device, or "".
	ResolveReferral(ctx context.Context, deviceID string) string

	// ResolveName maps a seller reference on a ticket to a display name,
	// falling back to the organic bucket for deleted sellers.
	ResolveName(id string) string

	// Stats aggregates one seller's sales and commission from the board.
	Stats(ctx context.Context, sellerID string) models.Stats

	SubmitApplication(ctx context.Context, app models.Application) (models.Application, error)
	ListApplications(ctx context.Context) ([]models.Application, error)

	// HandleFeedEvent reconciles seller rows changed by other instances.
	HandleFeedEvent(event feed.Event)
}

type sellerService struct {
	repo   repository.SellerRepository
	cache  Cache
	cfg    *config.Config
	board  BoardProvider
	raffle raffleservice.RaffleService

	mu      sync.RWMutex
	sellers map[string]models.Seller
}

func NewSellerService(
	repo repository.SellerRepository,
	cacheService Cache,
	cfg *config.Config,
	board BoardProvider,
	raffle raffleservice.RaffleService,
) SellerService {
	return &sellerService{
		repo:    repo,
		cache:   cacheService,
		cfg:     cfg,
		board:   board,
		raffle:  raffle,
		sellers: make(map[string]models.Seller),
	}
}

func (s *sellerService) Bootstrap(ctx context.Context) error {
	sellers, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sellers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sellers = make(map[string]models.Seller, len(sellers))
	for _, seller := range sellers {
		s.sellers[seller.ID] = seller
	}

	return nil
}

func (s *sellerService) List(ctx context.Context) []models.Seller {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Seller, 0, len(s.sellers))
	for _, seller := range s.sellers {
		out = append(out, seller)
	}
	return out
}

func (s *sellerService) Create(ctx context.Context, name, pin string) (models.Seller, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return models.Seller{}, apperrors.NewValidationError("name", err.Error())
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return models.Seller{}, apperrors.NewValidationError("pin", err.Error())
	}
	if pin == s.cfg.Raffle.AdminPIN {
		// The master credential cannot double as a seller credential.
		return models.Seller{}, apperrors.New(apperrors.ErrCodePinTaken, "PIN is not available")
	}

	seller, err := s.repo.Insert(ctx, name, pin)
	if err != nil {
		if err == repository.ErrPinTaken {
			return models.Seller{}, apperrors.New(apperrors.ErrCodePinTaken, "PIN is not available")
		}
		return models.Seller{}, apperrors.NewDatabaseError("create seller", err)
	}

	s.mu.Lock()
	s.sellers[seller.ID] = seller
	s.mu.Unlock()

	return seller, nil
}

func (s *sellerService) Update(ctx context.Context, seller models.Seller) error {
	if err := validation.ValidateName(seller.Name); err != nil {
		return apperrors.NewValidationError("name", err.Error())
	}
	if err := validation.ValidatePIN(seller.PIN); err != nil {
		return apperrors.NewValidationError("pin", err.Error())
	}

	if err := s.repo.Update(ctx, seller); err != nil {
		switch err {
		case repository.ErrSellerNotFound:
			return apperrors.NewNotFoundError("seller", seller.ID)
		case repository.ErrPinTaken:
			return apperrors.New(apperrors.ErrCodePinTaken, "PIN is not available")
		}
		return apperrors.NewDatabaseError("update seller", err)
	}

	s.mu.Lock()
	s.sellers[seller.ID] = seller
	s.mu.Unlock()

	return nil
}

func (s *sellerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == repository.ErrSellerNotFound {
			return apperrors.NewNotFoundError("seller", id)
		}
		return apperrors.NewDatabaseError("delete seller", err)
	}

	// Tickets keep their seller reference on purpose; stats resolve it to
	// the organic bucket from now on.
	s.mu.Lock()
	delete(s.sellers, id)
	s.mu.Unlock()

	return nil
}

func (s *sellerService) Login(ctx context.Context, pin string) (*LoginResult, error) {
	if err := validation.ValidatePIN(pin); err != nil {
		return nil, apperrors.NewUnauthorizedError()
	}

	var session middleware.Session
	var seller *models.Seller

	if pin == s.cfg.Raffle.AdminPIN {
		session = middleware.Session{Role: middleware.RoleAdmin}
	} else {
		found, err := s.repo.GetByPIN(ctx, pin)
		if err != nil {
			// Unknown and inactive PINs fail the same way; nothing about
			// existing sellers leaks.
			return nil, apperrors.NewUnauthorizedError()
		}
		session = middleware.Session{Role: middleware.RoleSeller, SellerID: found.ID}
		seller = &found
	}

	token := uuid.New().String()
	if err := s.cache.Set(ctx, sessionKeyPrefix+token, session, sessionTTL); err != nil {
		return nil, apperrors.NewCacheError("store session", err)
	}

	return &LoginResult{Token: token, Role: session.Role, Seller: seller, Session: &session}, nil
}

func (s *sellerService) GetSession(ctx context.Context, token string) (*middleware.Session, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError()
	}

	var session middleware.Session
	if err := s.cache.Get(ctx, sessionKeyPrefix+token, &session); err != nil {
		return nil, apperrors.NewUnauthorizedError()
	}
	return &session, nil
}

func (s *sellerService) CaptureReferral(ctx context.Context, deviceID, ref string) error {
	if deviceID == "" {
		return apperrors.NewValidationError("device_id", "cannot be empty")
	}
	if ref == "" {
		return apperrors.NewValidationError("ref", "cannot be empty")
	}

	if err := s.cache.SetString(ctx, referralKeyPrefix+deviceID, ref, referralTTL); err != nil {
		return apperrors.NewCacheError("capture referral", err)
	}

	return nil
}

func (s *sellerService) ResolveReferral(ctx context.Context, deviceID string) string {
	if deviceID == "" {
		return ""
	}

	ref, err := s.cache.GetString(ctx, referralKeyPrefix+deviceID)
	if err != nil {
		if err != cache.ErrMiss {
			logger.Warn().Err(err).Msg("Failed to resolve referral")
		}
		return ""
	}
	return ref
}

func (s *sellerService) ResolveName(id string) string {
	if id == "" {
		return models.OrganicSellerName
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if seller, ok := s.sellers[id]; ok {
		return seller.Name
	}
	return models.OrganicSellerName
}

func (s *sellerService) Stats(ctx context.Context, sellerID string) models.Stats {
	cfg := s.raffle.Current(ctx)

	var mine []ticketmodels.Ticket
	for _, t := range s.board.Snapshot() {
		if t.SellerID == sellerID && t.Status.Occupied() {
			mine = append(mine, t)
		}
	}

	paid := 0
	for _, t := range mine {
		if t.Status == ticketmodels.StatusPaid {
			paid++
		}
	}

	rate := cfg.CommissionRate()
	s.mu.RLock()
	if seller, ok := s.sellers[sellerID]; ok {
		rate = seller.EffectiveRate(rate)
	}
	s.mu.RUnlock()

	totalSales := float64(len(mine)) * cfg.TicketPriceUSD
	return models.Stats{
		SellerID:   sellerID,
		Count:      len(mine),
		Paid:       paid,
		Pending:    len(mine) - paid,
		TotalSales: totalSales,
		Commission: totalSales * rate,
		RatePct:    rate * 100,
	}
}

func (s *sellerService) SubmitApplication(ctx context.Context, app models.Application) (models.Application, error) {
	if err := validation.ValidateName(app.FullName); err != nil {
		return models.Application{}, apperrors.NewValidationError("full_name", err.Error())
	}
	if err := validation.ValidatePhone(app.Phone); err != nil {
		return models.Application{}, apperrors.NewValidationError("phone", err.Error())
	}
	if strings.TrimSpace(app.IDNumber) == "" {
		return models.Application{}, apperrors.NewValidationError("id_number", "cannot be empty")
	}

	created, err := s.repo.InsertApplication(ctx, app)
	if err != nil {
		return models.Application{}, apperrors.NewDatabaseError("submit application", err)
	}

	return created, nil
}

func (s *sellerService) ListApplications(ctx context.Context) ([]models.Application, error) {
	apps, err := s.repo.ListApplications(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list applications", err)
	}
	return apps, nil
}

func (s *sellerService) HandleFeedEvent(event feed.Event) {
	var seller models.Seller
	if err := event.DecodeRow(&seller); err != nil {
		logger.Error().Err(err).Msg("Failed to decode seller feed event")
		return
	}
	if seller.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case feed.EventInsert, feed.EventUpdate:
		s.sellers[seller.ID] = seller
	case feed.EventDelete:
		delete(s.sellers, seller.ID)
	}
}
