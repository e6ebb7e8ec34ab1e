package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "raffle-board-backend/internal/common/errors"
	"raffle-board-backend/internal/common/logger"
	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/common/validation"
	rafflemodels "raffle-board-backend/internal/features/raffle/models"
	raffleservice "raffle-board-backend/internal/features/raffle/service"
	"raffle-board-backend/internal/features/ticket/inventory"
	"raffle-board-backend/internal/features/ticket/models"
	"raffle-board-backend/internal/features/ticket/repository"
)

// ReferralResolver maps a visiting device to the seller whose link it
// followed, if any.
type ReferralResolver interface {
	ResolveReferral(ctx context.Context, deviceID string) string
}

// ReserveInput is one reservation attempt for a batch of tickets.
type ReserveInput struct {
	IDs      []string
	Name     string
	Phone    string
	DeviceID string
	// SellerID is the logged-in seller reserving on behalf of a walk-in.
	// A captured referral for the device always takes precedence: it is the
	// link the customer actually followed.
	SellerID string
}

// Receipt is the confirmation payload handed back on a successful
// reservation; delivering it (WhatsApp or otherwise) is the client's concern.
type Receipt struct {
	ReceiptID  string   `json:"receipt_id"`
	TicketIDs  []string `json:"ticket_ids"`
	TotalUSD   float64  `json:"total_usd"`
	TotalLocal float64  `json:"total_local"`
	DrawTitle  string   `json:"draw_title"`
	DrawDate   string   `json:"draw_date"`
	WhatsApp   string   `json:"whatsapp"`
	Message    string   `json:"message"`
}

// Actor identifies who is performing an administrative transition.
type Actor struct {
	Role     middleware.Role
	SellerID string
}

// GlobalStats summarizes the board.
type GlobalStats struct {
	Total                 int     `json:"total"`
	Sold                  int     `json:"sold"`
	Paid                  int     `json:"paid"`
	Available             int     `json:"available"`
	TotalRevenueConfirmed float64 `json:"total_revenue_confirmed"`
}

// ResizeResult reports a blocked shrink: occupied tickets that the new size
// would discard. The caller must retry with force to proceed.
type ResizeResult struct {
	Blocked  bool            `json:"blocked"`
	Affected []models.Ticket `json:"affected,omitempty"`
}

type TicketService interface {
	// Bootstrap loads the board, generating and persisting a fresh one of
	// defaultCount tickets when the store is empty. An error here is fatal:
	// the app must not run against an unsynced empty board.
	Bootstrap(ctx context.Context, defaultCount int) error

	// Board returns the current mirror, sorted by id.
	Board() []models.Ticket

	Get(id string) (models.Ticket, bool)

	// Inventory exposes the mirror for feed wiring and attribution queries.
	Inventory() *inventory.Inventory

	Stats(ctx context.Context) GlobalStats

	// Reserve claims the whole batch or nothing. On conflict the returned
	// error carries the ids that were taken.
	Reserve(ctx context.Context, input ReserveInput) (*Receipt, error)

	// ConfirmPayment moves a held ticket to paid.
	ConfirmPayment(ctx context.Context, id string, actor Actor) error

	// Release returns a held or paid ticket to the pool, clearing its
	// participant and attribution. Admins may release any ticket, sellers
	// only their own.
	Release(ctx context.Context, id string, actor Actor) error

	// Resize regenerates the board to newCount tickets, preserving surviving
	// rows. Shrinking over occupied tickets is rejected unless forced.
	Resize(ctx context.Context, newCount int, force bool) (*ResizeResult, error)

	// ResetAll regenerates every ticket as available at the current size.
	// Irreversible; the API layer gates it behind explicit confirmation.
	ResetAll(ctx context.Context) error
}

type ticketService struct {
	repo      repository.TicketRepository
	inv       *inventory.Inventory
	raffle    raffleservice.RaffleService
	referrals ReferralResolver
}

func NewTicketService(
	repo repository.TicketRepository,
	inv *inventory.Inventory,
	raffle raffleservice.RaffleService,
	referrals ReferralResolver,
) TicketService {
	return &ticketService{
		repo:      repo,
		inv:       inv,
		raffle:    raffle,
		referrals: referrals,
	}
}

func (s *ticketService) Bootstrap(ctx context.Context, defaultCount int) error {
	tickets, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ticket board: %w", err)
	}

	if len(tickets) == 0 {
		if err := validation.ValidateTicketCount(defaultCount); err != nil {
			return fmt.Errorf("invalid default ticket count: %w", err)
		}
		board := models.GenerateBoard(defaultCount)
		if err := s.repo.BulkInsert(ctx, board); err != nil {
			return fmt.Errorf("failed to initialize ticket board: %w", err)
		}
		s.inv.Load(board)
		logger.Info().Int("count", defaultCount).Msg("Ticket board initialized")
		return nil
	}

	s.inv.Load(tickets)
	logger.Info().Int("count", len(tickets)).Msg("Ticket board loaded")
	return nil
}

func (s *ticketService) Board() []models.Ticket {
	return s.inv.Snapshot()
}

func (s *ticketService) Get(id string) (models.Ticket, bool) {
	return s.inv.Get(id)
}

func (s *ticketService) Inventory() *inventory.Inventory {
	return s.inv
}

func (s *ticketService) Stats(ctx context.Context) GlobalStats {
	cfg := s.raffle.Current(ctx)

	stats := GlobalStats{}
	for _, t := range s.inv.Snapshot() {
		stats.Total++
		if t.Status.Occupied() {
			stats.Sold++
		}
		if t.Status == models.StatusPaid {
			stats.Paid++
		}
	}
	stats.Available = stats.Total - stats.Sold
	stats.TotalRevenueConfirmed = float64(stats.Paid) * cfg.TicketPriceUSD

	return stats
}

func (s *ticketService) Reserve(ctx context.Context, input ReserveInput) (*Receipt, error) {
	if err := validation.ValidateSelection(input.IDs); err != nil {
		return nil, apperrors.NewValidationError("ids", err.Error())
	}
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, apperrors.NewValidationError("name", err.Error())
	}
	if err := validation.ValidatePhone(input.Phone); err != nil {
		return nil, apperrors.NewValidationError("phone", err.Error())
	}

	sellerID := s.referrals.ResolveReferral(ctx, input.DeviceID)
	if sellerID == "" {
		sellerID = input.SellerID
	}

	// Early race check against the store. The claim below is atomic on its
	// own; this read just reports conflicts before anything is attempted.
	statuses, err := s.repo.GetStatuses(ctx, input.IDs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("check ticket availability", err)
	}
	var taken []string
	for _, id := range input.IDs {
		status, ok := statuses[id]
		if !ok {
			return nil, apperrors.NewNotFoundError("ticket", id)
		}
		if status != models.StatusAvailable {
			taken = append(taken, id)
		}
	}
	if len(taken) > 0 {
		return nil, apperrors.NewTicketsTakenError(taken)
	}

	participant := models.Participant{
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		Timestamp: time.Now().UnixMilli(),
		ReceiptID: newReceiptID(),
	}

	taken, err = s.repo.ClaimAvailable(ctx, input.IDs, participant, sellerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("reserve tickets", err)
	}
	if len(taken) > 0 {
		// Someone else won the race between the check and the claim. The
		// claim rolled back, nothing was reserved.
		return nil, apperrors.NewTicketsTakenError(taken)
	}

	status := models.StatusReviewing
	s.inv.ApplyLocal(input.IDs, models.Patch{
		Status:      &status,
		Participant: &participant,
		SellerID:    &sellerID,
	})

	cfg := s.raffle.Current(ctx)
	return buildReceipt(cfg, participant, input.IDs), nil
}

func (s *ticketService) ConfirmPayment(ctx context.Context, id string, actor Actor) error {
	t, ok := s.inv.Get(id)
	if !ok {
		return apperrors.NewNotFoundError("ticket", id)
	}
	if t.Status != models.StatusReviewing {
		return apperrors.New(apperrors.ErrCodeInvalidTransition,
			"Only held tickets can be confirmed as paid").
			WithDetail("id", id).
			WithDetail("status", t.Status)
	}
	if err := requireOwnership(t, actor); err != nil {
		return err
	}

	status := models.StatusPaid
	return s.updateBatch(ctx, []string{id}, models.Patch{Status: &status})
}

func (s *ticketService) Release(ctx context.Context, id string, actor Actor) error {
	t, ok := s.inv.Get(id)
	if !ok {
		return apperrors.NewNotFoundError("ticket", id)
	}
	if !t.Status.Occupied() {
		return apperrors.New(apperrors.ErrCodeInvalidTransition,
			"Ticket is already available").
			WithDetail("id", id)
	}
	if err := requireOwnership(t, actor); err != nil {
		return err
	}

	status := models.StatusAvailable
	return s.updateBatch(ctx, []string{id}, models.Patch{Status: &status})
}

// requireOwnership lets admins act on any ticket and sellers only on tickets
// bearing their own attribution.
func requireOwnership(t models.Ticket, actor Actor) error {
	if actor.Role == middleware.RoleAdmin {
		return nil
	}
	if actor.Role == middleware.RoleSeller && actor.SellerID != "" && t.SellerID == actor.SellerID {
		return nil
	}
	return apperrors.NewForbiddenError("ticket belongs to another seller")
}

// updateBatch applies the patch locally first, then pushes it to the store.
// A failed remote write is logged and reported but the local state is kept;
// the caller retries manually and the feed reconciles stragglers.
func (s *ticketService) updateBatch(ctx context.Context, ids []string, patch models.Patch) error {
	s.inv.ApplyLocal(ids, patch)

	if _, err := s.repo.UpdateFields(ctx, ids, patch); err != nil {
		logger.Error().Err(err).
			Strs("ids", ids).
			Msg("Remote ticket update failed, local state kept")
		return apperrors.NewDatabaseError("update tickets", err)
	}

	return nil
}

func (s *ticketService) Resize(ctx context.Context, newCount int, force bool) (*ResizeResult, error) {
	if err := validation.ValidateTicketCount(newCount); err != nil {
		return nil, apperrors.NewValidationError("count", err.Error())
	}

	current := s.inv.Snapshot()

	if newCount < len(current) && !force {
		var affected []models.Ticket
		for _, t := range current {
			n, err := strconv.Atoi(t.ID)
			if err != nil {
				continue
			}
			if n >= newCount && t.Status.Occupied() {
				affected = append(affected, t)
			}
		}
		if len(affected) > 0 {
			return &ResizeResult{Blocked: true, Affected: affected}, nil
		}
	}

	existing := make(map[int]models.Ticket, len(current))
	for _, t := range current {
		n, err := strconv.Atoi(t.ID)
		if err != nil {
			continue
		}
		existing[n] = t
	}

	board := models.GenerateBoard(newCount)
	for i := range board {
		// Same numeric id means the ticket survives with its sale intact,
		// re-padded to the new width.
		if t, ok := existing[i]; ok {
			t.ID = board[i].ID
			board[i] = t
		}
	}

	if err := s.repo.DeleteBeyond(ctx, models.PadWidth(newCount), newCount); err != nil {
		return nil, apperrors.NewDatabaseError("delete tickets beyond new range", err)
	}
	if err := s.repo.Upsert(ctx, board); err != nil {
		return nil, apperrors.NewDatabaseError("write resized board", err)
	}

	s.inv.Load(board)
	logger.Info().Int("count", newCount).Msg("Ticket board resized")

	return &ResizeResult{}, nil
}

func (s *ticketService) ResetAll(ctx context.Context) error {
	count := s.inv.Len()
	if count == 0 {
		return apperrors.New(apperrors.ErrCodeConflict, "Board is empty, nothing to reset")
	}

	board := models.GenerateBoard(count)
	if err := s.repo.DeleteAll(ctx); err != nil {
		return apperrors.NewDatabaseError("clear ticket board", err)
	}
	if err := s.repo.BulkInsert(ctx, board); err != nil {
		return apperrors.NewDatabaseError("reinsert clean board", err)
	}

	s.inv.Load(board)
	logger.Info().Int("count", count).Msg("Ticket board reset")

	return nil
}

func newReceiptID() string {
	return "R-" + strings.ToUpper(uuid.New().String()[:8])
}

func buildReceipt(cfg rafflemodels.RaffleConfig, p models.Participant, ids []string) *Receipt {
	total := float64(len(ids)) * cfg.TicketPriceUSD
	drawDate := formatDrawDate(cfg)

	message := fmt.Sprintf(
		"🌟 *%s* 🌟\n\n¡Hola! 👋 Mi nombre es *%s*.\n\n"+
			"He reservado los siguientes números:\n🎟️ *%s*\n\n"+
			"📅 *Fecha del Sorteo:* %s\n💰 *Total a pagar:* $%.0f\n\n"+
			"⚠️ *Condiciones:* Para participar y ganar, el boleto debe estar *PAGADO* antes del sorteo.\n\n¡Gracias! 🙏",
		cfg.DrawTitle, strings.ToUpper(p.Name), strings.Join(ids, ", "), drawDate, total)

	return &Receipt{
		ReceiptID:  p.ReceiptID,
		TicketIDs:  ids,
		TotalUSD:   total,
		TotalLocal: float64(len(ids)) * cfg.TicketPriceLocal,
		DrawTitle:  cfg.DrawTitle,
		DrawDate:   drawDate,
		WhatsApp:   cfg.WhatsApp,
		Message:    message,
	}
}

func formatDrawDate(cfg rafflemodels.RaffleConfig) string {
	t := cfg.DrawTime()
	if t.IsZero() {
		return "Pendiente"
	}
	return t.Format("02/01/2006 3:04 PM")
}
