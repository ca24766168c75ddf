package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/quota"
	"github.com/teddywilson/wipshare-sub002/storage"
	"github.com/teddywilson/wipshare-sub002/utils"
	"github.com/teddywilson/wipshare-sub002/validation"
)

// UploadController issues presigned URLs for direct-to-storage uploads and
// downloads. Every grant passes the quota gate first; a presigned URL is never
// handed out for an operation the caller's tier would not allow.
type UploadController struct {
	db    *gorm.DB
	store *storage.Client
}

// NewUploadController creates an UploadController.
func NewUploadController(db *gorm.DB, store *storage.Client) *UploadController {
	return &UploadController{db: db, store: store}
}

// PresignUpload validates the declared upload, charges it against the
// caller's tier limits, derives a collision-free object key and returns a
// presigned PUT URL. Nothing is persisted here; the client confirms the
// upload afterwards via CreateTrack with the returned key.
func (u *UploadController) PresignUpload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req validation.PresignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	if errs := validation.Validate(&req); errs != nil {
		utils.ValidationFailed(ctx, 40061, errs)
		return
	}

	var user models.User
	if err := u.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	limits, err := quota.GetTierLimit(u.db, user.Tier)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load tier limits")
		return
	}

	if !req.IsPublic {
		if err := quota.CheckFeature(limits, models.FeaturePrivateTracks); err != nil {
			utils.QuotaDenied(ctx, 40360, err.Error())
			return
		}
	}

	usage, err := quota.GetUsage(u.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load usage")
		return
	}

	if err := quota.CheckQuota(limits, usage, quota.Delta{
		Tracks:               1,
		StorageBytes:         req.SizeBytes,
		TrackSizeBytes:       req.SizeBytes,
		TrackDurationSeconds: int64(req.DurationSeconds),
	}); err != nil {
		utils.QuotaDenied(ctx, 40361, err.Error())
		return
	}

	key := storage.DeriveKey(userID, req.Filename, req.IsPublic)
	url, key, err := u.store.PresignUpload(ctx.Request.Context(), key)
	if err != nil {
		utils.StorageFault(ctx, 50260, err)
		return
	}

	utils.Success(ctx, gin.H{
		"upload_url": url,
		"object_key": key,
		"expires_in": int(storage.PresignExpiry.Seconds()),
	})
}

// PresignDownload returns a presigned GET URL for a track's audio. Public
// tracks are downloadable by anyone authenticated; private tracks only by
// their owner. The transfer is charged against the owner's bandwidth quota.
func (u *UploadController) PresignDownload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var track models.Track
	if err := u.db.First(&track, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to get track")
		return
	}

	if !track.IsPublic() && track.UserID != userID {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}

	var owner models.User
	if err := u.db.First(&owner, track.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load track owner")
		return
	}

	limits, err := quota.GetTierLimit(u.db, owner.Tier)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load tier limits")
		return
	}
	usage, err := quota.GetUsage(u.db, owner.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load usage")
		return
	}
	if err := quota.CheckQuota(limits, usage, quota.Delta{BandwidthBytes: track.SizeBytes}); err != nil {
		utils.QuotaDenied(ctx, 40362, err.Error())
		return
	}

	url, err := u.store.PresignDownload(ctx.Request.Context(), track.ObjectKey)
	if err != nil {
		utils.StorageFault(ctx, 50261, err)
		return
	}

	if err := quota.ApplyDelta(u.db, owner.ID, quota.Delta{BandwidthBytes: track.SizeBytes}); err != nil {
		utils.Sugar.Errorw("failed to apply bandwidth delta", "err", err, "user_id", owner.ID)
	}
	go quota.RecordPlay(u.db, track.ID)

	utils.Success(ctx, gin.H{
		"download_url": url,
		"expires_in":   int(storage.PresignExpiry.Seconds()),
	})
}
