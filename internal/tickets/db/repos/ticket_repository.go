package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ticketing/internal/db"
	"ticketing/internal/tickets/db/models"
)

// TicketRepository handles database operations for tickets.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(conn *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: conn}
}

// GetByID retrieves a ticket by its ID.
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

// Insert stores a new ticket at version 0.
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

// Update applies the ticket's new field values if the stored version still
// matches ticket.Version, bumping the version by one. The caller passes the
// row it read with its mutations applied; a concurrent writer who advanced
// the row first makes this a db.ErrVersionConflict.
func (r *TicketRepository) Update(ticket *models.Ticket) (*models.Ticket, error) {
	var updated models.Ticket
	err := r.db.QueryRowx(
		"UPDATE tickets SET title=$1, price=$2, order_id=$3, version=version+1 WHERE id=$4 AND version=$5 RETURNING *",
		ticket.Title, ticket.Price, ticket.OrderID, ticket.ID, ticket.Version,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missReason(ticket.ID)
		}
		return nil, err
	}
	return &updated, nil
}

// missReason distinguishes a missing row from a version mismatch after a
// gated update touched nothing.
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
