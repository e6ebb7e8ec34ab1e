package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/features/seller/models"
	"raffle-board-backend/internal/features/seller/service"
)

type SellerHandler struct {
	service service.SellerService
}

func NewSellerHandler(svc service.SellerService) *SellerHandler {
	return &SellerHandler{service: svc}
}

func (h *SellerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/login", h.login)
	router.POST("/referral", h.captureReferral)
	router.POST("/applications", h.submitApplication)
	router.GET("/applications", middleware.RequireAdmin(), h.listApplications)

	sellers := router.Group("/sellers")
	{
		sellers.GET("", middleware.RequireAdmin(), h.list)
		sellers.POST("", middleware.RequireAdmin(), h.create)
		sellers.PUT("/:id", middleware.RequireAdmin(), h.update)
		sellers.DELETE("/:id", middleware.RequireAdmin(), h.delete)
		sellers.GET("/:id/stats", middleware.RequireAdmin(), h.statsByID)
		sellers.GET("/me/stats", middleware.RequireSeller(), h.myStats)
	}
}

type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

func (h *SellerHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.PIN)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type referralRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Ref      string `json:"ref" binding:"required"`
}

func (h *SellerHandler) captureReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.CaptureReferral(c.Request.Context(), req.DeviceID, req.Ref); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SellerHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sellers": h.service.List(c.Request.Context())})
}

type createSellerRequest struct {
	Name string `json:"name" binding:"required"`
	PIN  string `json:"pin" binding:"required"`
}

func (h *SellerHandler) create(c *gin.Context) {
	var req createSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seller, err := h.service.Create(c.Request.Context(), req.Name, req.PIN)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

type updateSellerRequest struct {
	Name           string  `json:"name" binding:"required"`
	PIN            string  `json:"pin" binding:"required"`
	Active         bool    `json:"active"`
	CommissionRate float64 `json:"commission_rate"`
}

func (h *SellerHandler) update(c *gin.Context) {
	var req updateSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seller := models.Seller{
		ID:             c.Param("id"),
		Name:           req.Name,
		PIN:            req.PIN,
		Active:         req.Active,
		CommissionRate: req.CommissionRate,
	}
	if err := h.service.Update(c.Request.Context(), seller); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SellerHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SellerHandler) statsByID(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats(c.Request.Context(), c.Param("id")))
}

func (h *SellerHandler) myStats(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil || session.SellerID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Seller session required"})
		return
	}
	c.JSON(http.StatusOK, h.service.Stats(c.Request.Context(), session.SellerID))
}

type applicationRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	IDNumber    string `json:"id_number" binding:"required"`
	Address     string `json:"address"`
	Phone       string `json:"phone" binding:"required"`
	FamilyPhone string `json:"family_phone"`
}

func (h *SellerHandler) submitApplication(c *gin.Context) {
	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.service.SubmitApplication(c.Request.Context(), models.Application{
		FullName:    req.FullName,
		IDNumber:    req.IDNumber,
		Address:     req.Address,
		Phone:       req.Phone,
		FamilyPhone: req.FamilyPhone,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *SellerHandler) listApplications(c *gin.Context) {
	apps, err := h.service.ListApplications(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}
