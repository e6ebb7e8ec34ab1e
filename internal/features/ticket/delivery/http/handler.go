package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/features/ticket/service"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(svc service.TicketService) *TicketHandler {
	return &TicketHandler{service: svc}
}

func (h *TicketHandler) RegisterRoutes(router *gin.RouterGroup) {
	tickets := router.Group("/tickets")
	{
		tickets.GET("", h.list)
		tickets.GET("/stats", h.stats)
		tickets.POST("/reserve", h.reserve)
		tickets.POST("/:id/pay", middleware.RequireSeller(), h.confirmPayment)
		tickets.POST("/:id/release", middleware.RequireSeller(), h.release)
		tickets.POST("/resize", middleware.RequireAdmin(), h.resize)
		tickets.POST("/reset", middleware.RequireAdmin(), h.reset)
	}
}

func (h *TicketHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickets": h.service.Board()})
}

func (h *TicketHandler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats(c.Request.Context()))
}

type reserveRequest struct {
	IDs      []string `json:"ids" binding:"required,min=1"`
	Name     string   `json:"name" binding:"required"`
	Phone    string   `json:"phone" binding:"required"`
	DeviceID string   `json:"device_id"`
}

func (h *TicketHandler) reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.ReserveInput{
		IDs:      req.IDs,
		Name:     req.Name,
		Phone:    req.Phone,
		DeviceID: req.DeviceID,
	}
	// A logged-in seller reserving for a walk-in gets attribution unless the
	// device carries a referral.
	if session := middleware.GetSession(c); session != nil && session.Role == middleware.RoleSeller {
		input.SellerID = session.SellerID
	}

	receipt, err := h.service.Reserve(c.Request.Context(), input)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "receipt": receipt})
}

func actorFrom(c *gin.Context) service.Actor {
	session := middleware.GetSession(c)
	if session == nil {
		return service.Actor{}
	}
	return service.Actor{Role: session.Role, SellerID: session.SellerID}
}

func (h *TicketHandler) confirmPayment(c *gin.Context) {
	if err := h.service.ConfirmPayment(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TicketHandler) release(c *gin.Context) {
	if err := h.service.Release(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type resizeRequest struct {
	Count int  `json:"count" binding:"required,min=1"`
	Force bool `json:"force"`
}

func (h *TicketHandler) resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Resize(c.Request.Context(), req.Count, req.Force)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if result.Blocked {
		// The shrink would discard sold tickets; the client must confirm and
		// retry with force.
		c.JSON(http.StatusConflict, gin.H{"success": false, "result": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *TicketHandler) reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reset requires explicit confirmation"})
		return
	}

	if err := h.service.ResetAll(c.Request.Context()); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
