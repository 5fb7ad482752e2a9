package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ticketing/internal/db"
	"ticketing/internal/orders/db/models"
)

// TicketRepository maintains the orders service's read-cached copy of
// tickets. Writes come exclusively from the tickets consumer.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(conn *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: conn}
}

// GetByID retrieves a cached ticket by its ID.
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Get(&ticket, "SELECT * FROM tickets WHERE id=$1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// Insert caches a newly created ticket.
func (r *TicketRepository) Insert(ticket *models.Ticket) error {
	result, err := r.db.Exec(
		"INSERT INTO tickets (id, title, price, version, order_id) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
		ticket.ID, ticket.Title, ticket.Price, ticket.Version, ticket.OrderID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return db.ErrAlreadyExists
	}
	return nil
}

// ApplyUpdate applies a ticket.updated event carrying ticket.Version. The
// write only lands if the cached row sits exactly one version behind, which
// drops duplicates and holds back out-of-order updates until the missing one
// arrives.
func (r *TicketRepository) ApplyUpdate(ticket *models.Ticket) (*models.Ticket, error) {
	var updated models.Ticket
	err := r.db.QueryRowx(
		"UPDATE tickets SET title=$1, price=$2, order_id=$3, version=$4 WHERE id=$5 AND version=$6 RETURNING *",
		ticket.Title, ticket.Price, ticket.OrderID, ticket.Version, ticket.ID, ticket.Version-1,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missReason(ticket.ID)
		}
		return nil, err
	}
	return &updated, nil
}

func (r *TicketRepository) missReason(id string) error {
	var exists bool
	if err := r.db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)", id); err != nil {
		return err
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrVersionConflict
}
