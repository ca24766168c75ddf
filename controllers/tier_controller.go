package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/quota"
	"github.com/teddywilson/wipshare-sub002/utils"
)

const tierListCacheKey = "cache:tiers:list"

// TierController exposes the tier catalog for pricing pages and clients.
type TierController struct {
	db *gorm.DB
}

// NewTierController creates a TierController.
func NewTierController(db *gorm.DB) *TierController {
	return &TierController{db: db}
}

// ListTiers returns every tier with its limits and feature flags.
func (t *TierController) ListTiers(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(tierListCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	tiers, err := quota.ListTiers(t.db)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to list tiers")
		return
	}

	utils.CacheSetJSON(tierListCacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: tiers}, 10*time.Minute)
	utils.Success(ctx, tiers)
}
