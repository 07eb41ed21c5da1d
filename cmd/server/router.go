package main

import (
	"errors"
	"net/http"
	"os"

	"capsule-machine/internal/model"
	"capsule-machine/internal/service"
	"capsule-machine/pkg/auth"
	"capsule-machine/pkg/config"
	apperrors "capsule-machine/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupRouter(
	cfg *config.Config,
	drawSvc *service.DrawService,
	redemptionSvc *service.RedemptionService,
	catalogSvc *service.CatalogService,
	authMgr *auth.Manager,
	zlog *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API routes
	api := router.Group("/api")
	{
		api.GET("/balance", getBalanceHandler(drawSvc, zlog))
		api.POST("/redeem", redeemHandler(redemptionSvc, zlog))
		api.POST("/draw", drawHandler(drawSvc, zlog))
		api.GET("/collection", listCollectionHandler(drawSvc, zlog))
		api.GET("/bonus-asset", bonusAssetHandler(catalogSvc, zlog))
	}

	// Operator routes behind JWT; login itself is open
	admin := api.Group("/admin")
	admin.POST("/login", loginHandler(cfg, authMgr))
	guarded := admin.Group("", authMgr.Middleware())
	{
		guarded.GET("/codes", listCodesHandler(redemptionSvc, zlog))
		guarded.POST("/codes/issue", issueCodeHandler(redemptionSvc, zlog))
		guarded.GET("/prizes", listEntriesHandler(catalogSvc, zlog))
		guarded.GET("/prizes/all-lite", listEntriesLiteHandler(catalogSvc, zlog))
		guarded.POST("/prizes/upsert", upsertEntryHandler(catalogSvc, zlog))
		guarded.POST("/prizes/delete", deleteEntryHandler(catalogSvc, zlog))
		guarded.GET("/rarity-weights", getWeightsHandler(catalogSvc, zlog))
		guarded.POST("/rarity-weights/update", setWeightsHandler(catalogSvc, zlog))
	}

	return router
}

// serviceError maps domain errors to status codes so the two calling
// surfaces can tell "nothing left" from "that code doesn't work".
func serviceError(c *gin.Context, zlog *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "no credits left"})
	case errors.Is(err, apperrors.ErrInvalidCode):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid code"})
	case errors.Is(err, apperrors.ErrCodeAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "code already used"})
	case errors.Is(err, apperrors.ErrCodeExpired):
		c.JSON(http.StatusGone, gin.H{"error": "code expired"})
	case errors.Is(err, apperrors.ErrCodeExists):
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
	case errors.Is(err, apperrors.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrUnknownCategory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown category"})
	case errors.Is(err, apperrors.ErrInvalidWeightConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "weights must not all be zero"})
	case errors.Is(err, apperrors.ErrNoPrizeAvailable):
		// Operator configuration problem, surfaced distinctly so it can
		// be alerted on.
		zlog.Error("draw failed: no prize available")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no prize available"})
	default:
		zlog.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

// getBalanceHandler handles GET /api/balance
func getBalanceHandler(svc *service.DrawService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		participantID := c.Query("participant_id")
		if participantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id required"})
			return
		}

		credits, err := svc.GetBalance(c.Request.Context(), participantID)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"credits": credits})
	}
}

// redeemHandler handles POST /api/redeem
func redeemHandler(svc *service.RedemptionService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.RedeemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and participant_id required"})
			return
		}

		balance, err := svc.Redeem(c.Request.Context(), req.Code, req.ParticipantID)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance})
	}
}

// drawHandler handles POST /api/draw
func drawHandler(svc *service.DrawService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.DrawRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id required"})
			return
		}

		result, err := svc.PerformDraw(c.Request.Context(), req.ParticipantID)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// listCollectionHandler handles GET /api/collection
func listCollectionHandler(svc *service.DrawService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		participantID := c.Query("participant_id")
		if participantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id required"})
			return
		}

		items, err := svc.ListCollection(c.Request.Context(), participantID)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// bonusAssetHandler handles GET /api/bonus-asset
func bonusAssetHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := svc.BonusAsset(c.Request.Context())
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"asset_ref": entry.AssetRef})
	}
}

// loginHandler handles POST /api/admin/login
func loginHandler(cfg *config.Config, authMgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
			return
		}
		if req.Password != cfg.Admin.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}

		token, err := authMgr.SignAdminToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// listCodesHandler handles GET /api/admin/codes
func listCodesHandler(svc *service.RedemptionService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := svc.ListCodes(c.Request.Context())
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, codes)
	}
}

// issueCodeHandler handles POST /api/admin/codes/issue
func issueCodeHandler(svc *service.RedemptionService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.IssueCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "positive credit_value required"})
			return
		}

		code, err := svc.Issue(c.Request.Context(), &req)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusCreated, code)
	}
}

// listEntriesHandler handles GET /api/admin/prizes
func listEntriesHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := svc.ListEntries(c.Request.Context())
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

// listEntriesLiteHandler handles GET /api/admin/prizes/all-lite
func listEntriesLiteHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lite, err := svc.ListEntriesLite(c.Request.Context())
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, lite)
	}
}

// upsertEntryHandler handles POST /api/admin/prizes/upsert
func upsertEntryHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.UpsertEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category and asset_ref required"})
			return
		}

		entry, err := svc.UpsertEntry(c.Request.Context(), &req)
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// deleteEntryHandler handles POST /api/admin/prizes/delete
func deleteEntryHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID string `json:"id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return
		}

		if err := svc.DeleteEntry(c.Request.Context(), req.ID); err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// getWeightsHandler handles GET /api/admin/rarity-weights
func getWeightsHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		weights, err := svc.GetWeights(c.Request.Context())
		if err != nil {
			serviceError(c, zlog, err)
			return
		}
		data := make(map[string]int, len(weights))
		for _, row := range weights {
			data[string(row.Category)] = row.Weight
		}
		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

// setWeightsHandler handles POST /api/admin/rarity-weights/update
func setWeightsHandler(svc *service.CatalogService, zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]int
		if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category weight map required"})
			return
		}

		if err := svc.SetWeights(c.Request.Context(), req); err != nil {
			serviceError(c, zlog, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
