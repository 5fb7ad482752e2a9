package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"ticketing/internal/auth"
)

func SetupRoutes(r *gin.Engine, orders OrderStore, tickets TicketStore, events EventPublisher, window time.Duration, jwtKey []byte) {
	handler := NewHandler(orders, tickets, events, window)

	group := r.Group("/v1", auth.RequireAuth(jwtKey))
	{
		group.POST("", handler.CreateOrder)

		group.GET("/:id", handler.GetOrder)

		group.DELETE("/:id", handler.CancelOrder)
	}
}
