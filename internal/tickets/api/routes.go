package api

import (
	"github.com/gin-gonic/gin"

	"ticketing/internal/auth"
)

func SetupRoutes(r *gin.Engine, repo TicketStore, events EventPublisher, jwtKey []byte) {
	handler := NewHandler(repo, events)

	tickets := r.Group("/v1")
	{
		tickets.GET("/:id", handler.GetTicket)

		tickets.POST("", auth.RequireAuth(jwtKey), handler.CreateTicket)

		tickets.PUT("/:id", auth.RequireAuth(jwtKey), handler.UpdateTicket)
	}
}
