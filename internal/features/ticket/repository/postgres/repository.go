package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"raffle-board-backend/internal/feed"
	"raffle-board-backend/internal/features/ticket/models"
	"raffle-board-backend/internal/features/ticket/repository"
)

type postgresRepository struct {
	db        *sql.DB
	publisher *feed.Publisher
}

func NewPostgresRepository(db *sql.DB, publisher *feed.Publisher) repository.TicketRepository {
	return &postgresRepository{db: db, publisher: publisher}
}

func scanTicket(scan func(...interface{}) error) (models.Ticket, error) {
	var (
		t           models.Ticket
		rawStatus   string
		participant sql.NullString
		sellerID    sql.NullString
	)
	if err := scan(&t.ID, &rawStatus, &participant, &sellerID); err != nil {
		return models.Ticket{}, err
	}

	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return models.Ticket{}, err
	}
	t.Status = status

	if participant.Valid && participant.String != "" {
		var p models.Participant
		if err := json.Unmarshal([]byte(participant.String), &p); err != nil {
			return models.Ticket{}, fmt.Errorf("failed to decode participant for ticket %s: %w", t.ID, err)
		}
		t.Participant = &p
	}
	if sellerID.Valid {
		t.SellerID = sellerID.String
	}

	return t, nil
}

func participantArg(p *models.Participant) (interface{}, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal participant: %w", err)
	}
	return string(data), nil
}

func sellerArg(sellerID string) interface{} {
	if sellerID == "" {
		return nil
	}
	return sellerID
}

func (r *postgresRepository) List(ctx context.Context) ([]models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, status, participant, seller_id FROM tickets ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func (r *postgresRepository) BulkInsert(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO tickets (id, status, participant, seller_id) VALUES ($1, $2, $3, $4)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickets {
		p, err := participantArg(t.Participant)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, string(t.Status), p, sellerArg(t.SellerID)); err != nil {
			return fmt.Errorf("failed to insert ticket %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk insert: %w", err)
	}

	for _, t := range tickets {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventInsert, t)
	}

	return nil
}

func (r *postgresRepository) Upsert(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickets (id, status, participant, seller_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			participant = EXCLUDED.participant,
			seller_id = EXCLUDED.seller_id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickets {
		p, err := participantArg(t.Participant)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, string(t.Status), p, sellerArg(t.SellerID)); err != nil {
			return fmt.Errorf("failed to upsert ticket %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	for _, t := range tickets {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventUpdate, t)
	}

	return nil
}

func (r *postgresRepository) UpdateFields(ctx context.Context, ids []string, patch models.Patch) ([]models.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := "UPDATE tickets SET "
	args := []interface{}{}
	assignments := 0

	addAssignment := func(column string, value interface{}) {
		if assignments > 0 {
			query += ", "
		}
		args = append(args, value)
		query += fmt.Sprintf("%s = $%d", column, len(args))
		assignments++
	}

	if patch.Status != nil {
		addAssignment("status", string(*patch.Status))
		if *patch.Status == models.StatusAvailable {
			// Releasing always clears attribution, same rule as Patch.Apply.
			if assignments > 0 {
				query += ", "
			}
			query += "participant = NULL, seller_id = NULL"
			assignments++
		}
	}
	if patch.Participant != nil && (patch.Status == nil || *patch.Status != models.StatusAvailable) {
		p, err := participantArg(patch.Participant)
		if err != nil {
			return nil, err
		}
		addAssignment("participant", p)
	}
	if patch.SellerID != nil && (patch.Status == nil || *patch.Status != models.StatusAvailable) {
		addAssignment("seller_id", sellerArg(*patch.SellerID))
	}

	if assignments == 0 {
		return nil, fmt.Errorf("empty ticket patch")
	}

	args = append(args, pq.Array(ids))
	query += fmt.Sprintf(" WHERE id = ANY($%d) RETURNING id, status, participant, seller_id", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update tickets: %w", err)
	}
	defer rows.Close()

	var updated []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan updated ticket: %w", err)
		}
		updated = append(updated, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range updated {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventUpdate, t)
	}

	return updated, nil
}

func (r *postgresRepository) GetStatuses(ctx context.Context, ids []string) (map[string]models.Status, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, status FROM tickets WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]models.Status, len(ids))
	for rows.Next() {
		var id, rawStatus string
		if err := rows.Scan(&id, &rawStatus); err != nil {
			return nil, fmt.Errorf("failed to scan ticket status: %w", err)
		}
		status, err := models.ParseStatus(rawStatus)
		if err != nil {
			return nil, err
		}
		statuses[id] = status
	}

	return statuses, rows.Err()
}

// ClaimAvailable is the single conditional write that closes the
// check-then-reserve race: only rows still AVAILABLE are claimed, and unless
// every requested id is claimed the transaction is rolled back.
func (r *postgresRepository) ClaimAvailable(ctx context.Context, ids []string, participant models.Participant, sellerID string) ([]string, error) {
	p, err := participantArg(&participant)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE tickets
		SET status = $1, participant = $2, seller_id = $3
		WHERE id = ANY($4) AND status = $5
		RETURNING id, status, participant, seller_id
	`, string(models.StatusReviewing), p, sellerArg(sellerID), pq.Array(ids), string(models.StatusAvailable))
	if err != nil {
		return nil, fmt.Errorf("failed to claim tickets: %w", err)
	}

	claimed := make(map[string]models.Ticket, len(ids))
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claimed ticket: %w", err)
		}
		claimed[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(claimed) != len(ids) {
		// Partial claim: roll everything back and report the ids that were
		// not claimable (taken by someone else, or missing).
		var taken []string
		for _, id := range ids {
			if _, ok := claimed[id]; !ok {
				taken = append(taken, id)
			}
		}
		return taken, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	for _, id := range ids {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventUpdate, claimed[id])
	}

	return nil, nil
}

func (r *postgresRepository) DeleteBeyond(ctx context.Context, width, count int) error {
	rows, err := r.db.QueryContext(ctx,
		"DELETE FROM tickets WHERE char_length(id) <> $1 OR id::integer >= $2 RETURNING id",
		width, count)
	if err != nil {
		return fmt.Errorf("failed to delete tickets beyond %d: %w", count, err)
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan deleted id: %w", err)
		}
		deleted = append(deleted, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range deleted {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventDelete, models.Ticket{ID: id})
	}

	return nil
}

func (r *postgresRepository) DeleteAll(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, "DELETE FROM tickets RETURNING id")
	if err != nil {
		return fmt.Errorf("failed to delete all tickets: %w", err)
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan deleted id: %w", err)
		}
		deleted = append(deleted, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range deleted {
		r.publisher.Publish(ctx, feed.TableTickets, feed.EventDelete, models.Ticket{ID: id})
	}

	return nil
}
