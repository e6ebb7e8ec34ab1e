package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/features/raffle/models"
	"raffle-board-backend/internal/features/raffle/service"
)

type RaffleHandler struct {
	service service.RaffleService
}

func NewRaffleHandler(svc service.RaffleService) *RaffleHandler {
	return &RaffleHandler{service: svc}
}

func (h *RaffleHandler) RegisterRoutes(router *gin.RouterGroup) {
	config := router.Group("/config")
	{
		config.GET("", h.get)
		config.PUT("", middleware.RequireAdmin(), h.update)
		config.GET("/countdown", h.countdown)
		config.POST("/winners", middleware.RequireAdmin(), h.publishWinner)
	}
}

func (h *RaffleHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Current(c.Request.Context()))
}

func (h *RaffleHandler) update(c *gin.Context) {
	var cfg models.RaffleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Update(c.Request.Context(), cfg); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *RaffleHandler) countdown(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Countdown(c.Request.Context()))
}

type winnerRequest struct {
	Number string `json:"number" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Prize  string `json:"prize" binding:"required"`
}

func (h *RaffleHandler) publishWinner(c *gin.Context) {
	var req winnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.PublishWinner(c.Request.Context(), req.Number, req.Name, req.Prize); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
