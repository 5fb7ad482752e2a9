package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/circuitbreaker"
	"ticketing/internal/db"
	"ticketing/internal/event"
	"ticketing/internal/payments/db/models"
)

// OrderStore reads the service's cached order projections.
type OrderStore interface {
	GetByID(id string) (*models.Order, error)
}

// PaymentStore records charge attempts.
type PaymentStore interface {
	Insert(payment *models.Payment) error
	GetByOrderID(orderID string) ([]models.Payment, error)
}

// EventPublisher emits payment events as the charge progresses.
type EventPublisher interface {
	PaymentCreated(orderID, paymentID string) error
	PaymentSucceeded(orderID, paymentID string) error
	PaymentFailed(orderID, reason string) error
}

// Charger performs the actual charge against the payment provider.
type Charger interface {
	Charge(amountCents int64, orderID string) (string, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	orders   OrderStore
	payments PaymentStore
	events   EventPublisher
	charger  Charger
	breaker  *circuitbreaker.CircuitBreaker
	logger   *log.Logger
}

// NewHandler creates a new Handler with dependencies.
func NewHandler(orders OrderStore, payments PaymentStore, events EventPublisher, charger Charger, breaker *circuitbreaker.CircuitBreaker, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		orders:   orders,
		payments: payments,
		events:   events,
		charger:  charger,
		breaker:  breaker,
		logger:   logger,
	}
}

// CreatePayment charges the caller for an open order. payment.created goes
// out before the charge so the orders service can move the order to
// pending_payment; the outcome event follows once the provider answers.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orders.GetByID(req.OrderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Printf("Failed to load order %s: %v", req.OrderID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	switch order.Status {
	case event.OrderStatusCancelled:
		http.Error(w, "Cannot pay for a cancelled order", http.StatusBadRequest)
		return
	case event.OrderStatusCompleted:
		http.Error(w, "Order is already paid", http.StatusBadRequest)
		return
	case event.OrderStatusFailed:
		http.Error(w, "Order already failed, create a new one", http.StatusBadRequest)
		return
	}

	payment := &models.Payment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		CreatedAt: time.Now(),
	}

	if err := h.events.PaymentCreated(order.ID, payment.ID); err != nil {
		h.logger.Printf("Failed to publish payment.created for order %s: %v", order.ID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	providerID, chargeErr := h.chargeWithBreaker(order)
	if chargeErr != nil {
		if circuitbreaker.IsBreakerError(chargeErr) {
			h.logger.Printf("Payment provider circuit open for order %s: %v", order.ID, chargeErr)
			http.Error(w, "Payment provider temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		h.logger.Printf("Charge failed for order %s: %v", order.ID, chargeErr)
		payment.Status = models.PaymentStatusFailed
		if err := h.payments.Insert(payment); err != nil {
			h.logger.Printf("Failed to record failed payment for order %s: %v", order.ID, err)
		}
		if err := h.events.PaymentFailed(order.ID, chargeErr.Error()); err != nil {
			h.logger.Printf("Failed to publish payment.failed for order %s: %v", order.ID, err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		http.Error(w, "Payment failed: "+chargeErr.Error(), http.StatusPaymentRequired)
		return
	}

	payment.ProviderID = providerID
	payment.Status = models.PaymentStatusSucceeded
	if err := h.payments.Insert(payment); err != nil {
		h.logger.Printf("Failed to record payment for order %s: %v", order.ID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.events.PaymentSucceeded(order.ID, payment.ID); err != nil {
		h.logger.Printf("Failed to publish payment.succeeded for order %s: %v", order.ID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Printf("Payment %s succeeded for order %s", payment.ID, order.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(payment)
}

// ListPaymentsForOrder returns every charge attempt made for an order.
func (h *Handler) ListPaymentsForOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	payments, err := h.payments.GetByOrderID(orderID)
	if err != nil {
		h.logger.Printf("Failed to list payments for order %s: %v", orderID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}

func (h *Handler) chargeWithBreaker(order *models.Order) (string, error) {
	var providerID string
	err := h.breaker.Execute(func() error {
		// Round, don't truncate: 19.99*100 is 1998.999... in float64.
		id, err := h.charger.Charge(int64(math.Round(order.Price*100)), order.ID)
		if err != nil {
			return fmt.Errorf("charge order %s: %w", order.ID, err)
		}
		providerID = id
		return nil
	})
	return providerID, err
}
