package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing/internal/auth"
	"ticketing/internal/db"
	"ticketing/internal/event"
	"ticketing/internal/orders/db/models"
)

// OrderStore is the slice of the order repository the handlers need.
type OrderStore interface {
	GetByID(id string) (*models.Order, error)
	Insert(order *models.Order) error
	UpdateStatus(id string, expectedVersion int, status string) (*models.Order, error)
}

// TicketStore reads the service's cached ticket projections.
type TicketStore interface {
	GetByID(id string) (*models.Ticket, error)
}

// EventPublisher emits order events after a mutation is persisted.
type EventPublisher interface {
	OrderCreated(order *models.Order, price float64) error
	OrderCancelled(order *models.Order) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	orders  OrderStore
	tickets TicketStore
	events  EventPublisher
	window  time.Duration
}

// NewHandler creates a new Handler. window is how long a fresh order may
// wait for payment before it expires.
func NewHandler(orders OrderStore, tickets TicketStore, events EventPublisher, window time.Duration) *Handler {
	return &Handler{orders: orders, tickets: tickets, events: events, window: window}
}

// CreateOrder reserves a ticket for the caller and publishes order.created.
func (h *Handler) CreateOrder(c *gin.Context) {
	var input struct {
		TicketID string `json:"ticketId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.tickets.GetByID(input.TicketID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ticket.Reserved() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticket is already reserved"})
		return
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		TicketID:  ticket.ID,
		UserID:    c.GetString(auth.ContextUserID),
		Status:    event.OrderStatusCreated,
		Version:   0,
		ExpiresAt: time.Now().Add(h.window),
	}
	if err := h.orders.Insert(order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.events.OrderCreated(order, ticket.Price); err != nil {
		log.Printf("Failed to publish order.created for %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order stored but event publish failed"})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder retrieves one of the caller's orders.
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order.UserID != c.GetString(auth.ContextUserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels one of the caller's open orders and publishes
// order.cancelled, which releases the ticket downstream.
func (h *Handler) CancelOrder(c *gin.Context) {
	order, err := h.orders.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order.UserID != c.GetString(auth.ContextUserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your order"})
		return
	}

	switch order.Status {
	case event.OrderStatusCreated, event.OrderStatusPendingPayment:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order is " + order.Status + " and cannot be cancelled"})
		return
	}

	cancelled, err := h.orders.UpdateStatus(order.ID, order.Version, event.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order changed concurrently, retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.events.OrderCancelled(cancelled); err != nil {
		log.Printf("Failed to publish order.cancelled for %s: %v", cancelled.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order cancelled but event publish failed"})
		return
	}

	c.JSON(http.StatusOK, cancelled)
}
