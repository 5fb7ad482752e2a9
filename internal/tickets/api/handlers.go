package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing/internal/db"
	"ticketing/internal/tickets/db/models"
)

// TicketStore is the slice of the ticket repository the handlers need.
type TicketStore interface {
	GetByID(id string) (*models.Ticket, error)
	Insert(ticket *models.Ticket) error
	Update(ticket *models.Ticket) (*models.Ticket, error)
}

// EventPublisher emits ticket events after a mutation is persisted.
type EventPublisher interface {
	TicketCreated(ticket *models.Ticket) error
	TicketUpdated(ticket *models.Ticket) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo   TicketStore
	events EventPublisher
}

// NewHandler creates a new Handler with dependencies.
func NewHandler(repo TicketStore, events EventPublisher) *Handler {
	return &Handler{repo: repo, events: events}
}

// GetTicket retrieves a ticket by its ID.
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CreateTicket lists a new ticket and publishes ticket.created.
func (h *Handler) CreateTicket(c *gin.Context) {
	var input struct {
		Title string  `json:"title" binding:"required"`
		Price float64 `json:"price" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket := &models.Ticket{
		ID:      uuid.New().String(),
		Title:   input.Title,
		Price:   input.Price,
		Version: 0,
	}
	if err := h.repo.Insert(ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.events.TicketCreated(ticket); err != nil {
		log.Printf("Failed to publish ticket.created for %s: %v", ticket.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket stored but event publish failed"})
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// UpdateTicket changes a ticket's title or price and publishes
// ticket.updated. Reserved tickets cannot be edited until released.
func (h *Handler) UpdateTicket(c *gin.Context) {
	var input struct {
		Title string  `json:"title" binding:"required"`
		Price float64 `json:"price" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if ticket.Reserved() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticket is reserved and cannot be edited"})
		return
	}

	ticket.Title = input.Title
	ticket.Price = input.Price
	updated, err := h.repo.Update(ticket)
	if err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Ticket was modified concurrently, retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.events.TicketUpdated(updated); err != nil {
		log.Printf("Failed to publish ticket.updated for %s: %v", updated.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket stored but event publish failed"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
