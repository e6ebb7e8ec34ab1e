package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raffle-board-backend/internal/common/cache"
	"raffle-board-backend/internal/common/config"
	apperrors "raffle-board-backend/internal/common/errors"
	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/feed"
	rafflemodels "raffle-board-backend/internal/features/raffle/models"
	"raffle-board-backend/internal/features/seller/models"
	"raffle-board-backend/internal/features/seller/repository"
	ticketmodels "raffle-board-backend/internal/features/ticket/models"
)

type fakeSellerRepo struct {
	sellers map[string]models.Seller
	apps    []models.Application
	nextID  int
}

func newFakeSellerRepo() *fakeSellerRepo {
	return &fakeSellerRepo{sellers: make(map[string]models.Seller)}
}

func (r *fakeSellerRepo) List(_ context.Context) ([]models.Seller, error) {
	out := make([]models.Seller, 0, len(r.sellers))
	for _, s := range r.sellers {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSellerRepo) GetByID(_ context.Context, id string) (models.Seller, error) {
	s, ok := r.sellers[id]
	if !ok {
		return models.Seller{}, repository.ErrSellerNotFound
	}
	return s, nil
}

func (r *fakeSellerRepo) GetByPIN(_ context.Context, pin string) (models.Seller, error) {
	for _, s := range r.sellers {
		if s.PIN == pin && s.Active {
			return s, nil
		}
	}
	return models.Seller{}, repository.ErrSellerNotFound
}

func (r *fakeSellerRepo) Insert(_ context.Context, name, pin string) (models.Seller, error) {
	for _, s := range r.sellers {
		if s.PIN == pin && s.Active {
			return models.Seller{}, repository.ErrPinTaken
		}
	}
	r.nextID++
	s := models.Seller{
		ID:             fmt.Sprintf("seller-%d", r.nextID),
		Name:           name,
		PIN:            pin,
		Active:         true,
		CommissionRate: models.DefaultCommissionRate,
	}
	r.sellers[s.ID] = s
	return s, nil
}

func (r *fakeSellerRepo) Update(_ context.Context, seller models.Seller) error {
	if _, ok := r.sellers[seller.ID]; !ok {
		return repository.ErrSellerNotFound
	}
	for _, s := range r.sellers {
		if s.ID != seller.ID && s.PIN == seller.PIN && s.Active {
			return repository.ErrPinTaken
		}
	}
	r.sellers[seller.ID] = seller
	return nil
}

func (r *fakeSellerRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.sellers[id]; !ok {
		return repository.ErrSellerNotFound
	}
	delete(r.sellers, id)
	return nil
}

func (r *fakeSellerRepo) InsertApplication(_ context.Context, app models.Application) (models.Application, error) {
	r.nextID++
	app.ID = fmt.Sprintf("app-%d", r.nextID)
	r.apps = append(r.apps, app)
	return app, nil
}

func (r *fakeSellerRepo) ListApplications(_ context.Context) ([]models.Application, error) {
	return r.apps, nil
}

// fakeCache behaves like the Redis-backed cache service, ErrMiss included.
type fakeCache struct {
	values  map[string][]byte
	strings map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte), strings: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *fakeCache) GetString(_ context.Context, key string) (string, error) {
	v, ok := c.strings[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	c.strings[key] = value
	return nil
}

type fakeBoard struct {
	tickets []ticketmodels.Ticket
}

func (b *fakeBoard) Snapshot() []ticketmodels.Ticket { return b.tickets }

type fakeRaffle struct {
	cfg rafflemodels.RaffleConfig
}

func (f *fakeRaffle) Current(_ context.Context) rafflemodels.RaffleConfig { return f.cfg }
func (f *fakeRaffle) Update(_ context.Context, cfg rafflemodels.RaffleConfig) error {
	f.cfg = cfg
	return nil
}
func (f *fakeRaffle) PublishWinner(_ context.Context, _, _, _ string) error { return nil }
func (f *fakeRaffle) Countdown(_ context.Context) rafflemodels.Countdown {
	return rafflemodels.Countdown{}
}
func (f *fakeRaffle) HandleFeedEvent(_ feed.Event) {}

const testAdminPIN = "9999"

func newTestSellerService(t *testing.T, board *fakeBoard) (*fakeSellerRepo, *fakeCache, SellerService) {
	t.Helper()
	repo := newFakeSellerRepo()
	cch := newFakeCache()
	cfg := &config.Config{}
	cfg.Raffle.AdminPIN = testAdminPIN
	if board == nil {
		board = &fakeBoard{}
	}
	svc := NewSellerService(repo, cch, cfg, board, &fakeRaffle{cfg: rafflemodels.Default()})
	require.NoError(t, svc.Bootstrap(context.Background()))
	return repo, cch, svc
}

func appCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestCreateSeller(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	seller, err := svc.Create(context.Background(), "Maria", "1234")
	require.NoError(t, err)
	assert.NotEmpty(t, seller.ID)
	assert.True(t, seller.Active)
	assert.Equal(t, "Maria", svc.ResolveName(seller.ID))

	_, err = svc.Create(context.Background(), "Pedro", "1234")
	require.Error(t, err, "duplicate PIN must be rejected")
	assert.Equal(t, apperrors.ErrCodePinTaken, appCode(t, err))

	_, err = svc.Create(context.Background(), "Pedro", testAdminPIN)
	require.Error(t, err, "the master PIN cannot become a seller PIN")
	assert.Equal(t, apperrors.ErrCodePinTaken, appCode(t, err))

	_, err = svc.Create(context.Background(), "Pedro", "12")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, appCode(t, err))
}

func TestLoginAdmin(t *testing.T) {
	_, cch, svc := newTestSellerService(t, nil)

	result, err := svc.Login(context.Background(), testAdminPIN)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, result.Role)
	assert.Nil(t, result.Seller)
	require.NotEmpty(t, result.Token)

	session, err := svc.GetSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, session.Role)
	assert.Contains(t, cch.values, "session:"+result.Token)
}

func TestLoginSeller(t *testing.T) {
	repo, _, svc := newTestSellerService(t, nil)

	created, err := svc.Create(context.Background(), "Maria", "1234")
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleSeller, result.Role)
	require.NotNil(t, result.Seller)
	assert.Equal(t, created.ID, result.Seller.ID)

	session, err := svc.GetSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, session.SellerID)

	// Deactivated sellers fail with the same generic error as unknown PINs.
	created.Active = false
	require.NoError(t, repo.Update(context.Background(), created))

	_, err = svc.Login(context.Background(), "1234")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appCode(t, err))

	_, err = svc.Login(context.Background(), "0000")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appCode(t, err))
}

func TestGetSessionUnknownToken(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	_, err := svc.GetSession(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appCode(t, err))

	_, err = svc.GetSession(context.Background(), "")
	require.Error(t, err)
}

func TestReferralRoundTrip(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	assert.Empty(t, svc.ResolveReferral(context.Background(), "device-1"))

	require.NoError(t, svc.CaptureReferral(context.Background(), "device-1", "seller-7"))
	assert.Equal(t, "seller-7", svc.ResolveReferral(context.Background(), "device-1"))

	// Last capture wins.
	require.NoError(t, svc.CaptureReferral(context.Background(), "device-1", "seller-8"))
	assert.Equal(t, "seller-8", svc.ResolveReferral(context.Background(), "device-1"))

	err := svc.CaptureReferral(context.Background(), "", "seller-7")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, appCode(t, err))

	assert.Empty(t, svc.ResolveReferral(context.Background(), ""))
}

func TestResolveNameOrganicFallback(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	seller, err := svc.Create(context.Background(), "Maria", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Maria", svc.ResolveName(seller.ID))

	require.NoError(t, svc.Delete(context.Background(), seller.ID))

	// Tickets keep pointing at the deleted seller; the name resolves to the
	// organic bucket instead of dangling.
	assert.Equal(t, models.OrganicSellerName, svc.ResolveName(seller.ID))
	assert.Equal(t, models.OrganicSellerName, svc.ResolveName(""))
}

func boardWithSales(sellerID string, held, paid int) *fakeBoard {
	var tickets []ticketmodels.Ticket
	participant := &ticketmodels.Participant{Name: "Ana", Phone: "555-0001", Timestamp: 1}
	for i := 0; i < held; i++ {
		tickets = append(tickets, ticketmodels.Ticket{
			ID: fmt.Sprintf("h%02d", i), Status: ticketmodels.StatusReviewing,
			Participant: participant, SellerID: sellerID,
		})
	}
	for i := 0; i < paid; i++ {
		tickets = append(tickets, ticketmodels.Ticket{
			ID: fmt.Sprintf("p%02d", i), Status: ticketmodels.StatusPaid,
			Participant: participant, SellerID: sellerID,
		})
	}
	// Noise the aggregation must ignore.
	tickets = append(tickets,
		ticketmodels.Ticket{ID: "x1", Status: ticketmodels.StatusAvailable},
		ticketmodels.Ticket{ID: "x2", Status: ticketmodels.StatusPaid, Participant: participant, SellerID: "someone-else"},
	)
	return &fakeBoard{tickets: tickets}
}

func TestStatsGlobalRate(t *testing.T) {
	board := boardWithSales("seller-1", 2, 3)
	_, _, svc := newTestSellerService(t, board)

	stats := svc.Stats(context.Background(), "seller-1")
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 3, stats.Paid)
	assert.Equal(t, 2, stats.Pending)
	// Default config: $10 per ticket, 10% commission.
	assert.Equal(t, 50.0, stats.TotalSales)
	assert.Equal(t, 5.0, stats.Commission)
	assert.Equal(t, 10.0, stats.RatePct)
}

func TestStatsCustomRateOverridesGlobal(t *testing.T) {
	board := boardWithSales("", 0, 4)
	repo, _, svc := newTestSellerService(t, board)

	seller, err := svc.Create(context.Background(), "Maria", "1234")
	require.NoError(t, err)
	for i := range board.tickets {
		if board.tickets[i].SellerID == "" && board.tickets[i].Status.Occupied() {
			board.tickets[i].SellerID = seller.ID
		}
	}

	seller.CommissionRate = 0.25
	require.NoError(t, svc.Update(context.Background(), seller))

	stats := svc.Stats(context.Background(), seller.ID)
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 40.0, stats.TotalSales)
	assert.Equal(t, 10.0, stats.Commission)
	assert.Equal(t, 25.0, stats.RatePct)
	assert.Equal(t, seller.CommissionRate, repo.sellers[seller.ID].CommissionRate)
}

func TestStatsCommissionMonotonic(t *testing.T) {
	prevSales, prevCommission := -1.0, -1.0
	for count := 0; count <= 10; count++ {
		board := boardWithSales("seller-1", 0, count)
		_, _, svc := newTestSellerService(t, board)

		stats := svc.Stats(context.Background(), "seller-1")
		assert.GreaterOrEqual(t, stats.TotalSales, prevSales)
		assert.GreaterOrEqual(t, stats.Commission, prevCommission)
		prevSales, prevCommission = stats.TotalSales, stats.Commission
	}
}

func TestHandleFeedEvent(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	seller := models.Seller{ID: "remote-1", Name: "Luisa", PIN: "5678", Active: true}
	row, err := json.Marshal(seller)
	require.NoError(t, err)

	event := feed.Event{Table: feed.TableSellers, Type: feed.EventInsert, Row: row}
	svc.HandleFeedEvent(event)
	svc.HandleFeedEvent(event) // replay must be harmless
	assert.Equal(t, "Luisa", svc.ResolveName("remote-1"))

	svc.HandleFeedEvent(feed.Event{Table: feed.TableSellers, Type: feed.EventDelete, Row: row})
	assert.Equal(t, models.OrganicSellerName, svc.ResolveName("remote-1"))
}

func TestSubmitApplication(t *testing.T) {
	_, _, svc := newTestSellerService(t, nil)

	created, err := svc.SubmitApplication(context.Background(), models.Application{
		FullName: "Carlos Ruiz",
		IDNumber: "V-12345678",
		Phone:    "555-0100",
		Address:  "Calle 1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	apps, err := svc.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Carlos Ruiz", apps[0].FullName)

	_, err = svc.SubmitApplication(context.Background(), models.Application{
		FullName: "Carlos Ruiz", Phone: "555-0100",
	})
	require.Error(t, err, "id number is required")
	assert.Equal(t, apperrors.ErrCodeValidation, appCode(t, err))
}
