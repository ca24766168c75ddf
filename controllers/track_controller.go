package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/quota"
	"github.com/teddywilson/wipshare-sub002/storage"
	"github.com/teddywilson/wipshare-sub002/utils"
	"github.com/teddywilson/wipshare-sub002/validation"
)

const (
	trackListCachePrefix = "cache:tracks:list:"
	trackCachePrefix     = "cache:tracks:id:"
	trackCacheTTL        = 5 * time.Minute
)

// TrackController manages track metadata, comments and the upload
// confirmation flow. The audio bytes themselves never pass through here;
// clients upload directly to object storage using presigned URLs and then
// confirm with the derived key.
type TrackController struct {
	db    *gorm.DB
	store *storage.Client
}

// NewTrackController creates a TrackController.
func NewTrackController(db *gorm.DB, store *storage.Client) *TrackController {
	return &TrackController{db: db, store: store}
}

// CreateTrack confirms a completed upload and persists track metadata.
// The object key must have been derived for this user; quota is charged here.
func (t *TrackController) CreateTrack(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req validation.TrackCreate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	if errs := validation.Validate(&req); errs != nil {
		utils.ValidationFailed(ctx, 40011, errs)
		return
	}
	req.ApplyDefaults()

	if !storage.KeyOwnedBy(req.ObjectKey, userID) {
		utils.Error(ctx, http.StatusForbidden, 40310, "object key does not belong to you")
		return
	}
	// The key's visibility prefix is fixed at presign time; metadata must agree.
	if storage.IsPublicKey(req.ObjectKey) != (req.Visibility == models.VisibilityPublic) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "visibility does not match object key")
		return
	}

	var user models.User
	if err := t.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	limits, err := quota.GetTierLimit(t.db, user.Tier)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load tier limits")
		return
	}

	if req.Visibility == models.VisibilityPrivate {
		if err := quota.CheckFeature(limits, models.FeaturePrivateTracks); err != nil {
			utils.QuotaDenied(ctx, 40311, err.Error())
			return
		}
	}

	usage, err := quota.GetUsage(t.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load usage")
		return
	}
	if err := quota.CheckQuota(limits, usage, quota.Delta{
		Tracks:               1,
		StorageBytes:         req.SizeBytes,
		TrackSizeBytes:       req.SizeBytes,
		TrackDurationSeconds: int64(req.DurationSeconds),
	}); err != nil {
		utils.QuotaDenied(ctx, 40312, err.Error())
		return
	}

	tagsJSON, err := json.Marshal(normalizeTags(req.Tags))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to encode tags")
		return
	}

	track := models.Track{
		UserID:          userID,
		Title:           utils.Sanitize(strings.TrimSpace(req.Title)),
		Description:     utils.Sanitize(strings.TrimSpace(req.Description)),
		Visibility:      req.Visibility,
		Tags:            string(tagsJSON),
		ObjectKey:       req.ObjectKey,
		SizeBytes:       req.SizeBytes,
		DurationSeconds: req.DurationSeconds,
	}

	if err := t.db.Create(&track).Error; err != nil {
		// Duplicate object key means the upload was already confirmed.
		if strings.Contains(err.Error(), "Duplicate") || errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40910, "upload already confirmed")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to create track")
		return
	}

	if err := quota.ApplyDelta(t.db, userID, quota.Delta{
		Tracks:       1,
		StorageBytes: req.SizeBytes,
	}); err != nil {
		utils.Sugar.Errorw("failed to apply usage delta", "err", err, "user_id", userID)
	}

	utils.InvalidateByPrefix(trackListCachePrefix)
	utils.Success(ctx, track)
}

// ListTracks returns a paginated list of public tracks, optionally filtered
// by a search query across title and tags.
func (t *TrackController) ListTracks(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("q"))

	cacheKey := fmt.Sprintf("%sp%d:s%d:q%s", trackListCachePrefix, page, pageSize, search)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	query := t.db.Model(&models.Track{}).Where("visibility = ?", models.VisibilityPublic)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR tags LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to count tracks")
		return
	}

	var tracks []models.Track
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tracks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to list tracks")
		return
	}

	payload := gin.H{
		"items": trackListResponse(tracks, t.loadAuthors(tracks)),
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, trackCacheTTL)
	utils.Success(ctx, payload)
}

// ListMyTracks returns the authenticated user's tracks, both public and private.
func (t *TrackController) ListMyTracks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	t.listByUser(ctx, userID, true)
}

// ListUserTracks returns another user's public tracks.
func (t *TrackController) ListUserTracks(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid user id")
		return
	}
	t.listByUser(ctx, uint(id), false)
}

func (t *TrackController) listByUser(ctx *gin.Context, userID uint, includePrivate bool) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := t.db.Model(&models.Track{}).Where("user_id = ?", userID)
	if !includePrivate {
		query = query.Where("visibility = ?", models.VisibilityPublic)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to count tracks")
		return
	}

	var tracks []models.Track
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&tracks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to list tracks")
		return
	}

	utils.Success(ctx, gin.H{
		"items": trackListResponse(tracks, t.loadAuthors(tracks)),
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// GetTrack returns a single track with its comments. Private tracks are only
// visible to their owner.
func (t *TrackController) GetTrack(ctx *gin.Context) {
	id := ctx.Param("id")

	// Only public tracks are ever cached, so a hit needs no authz.
	cacheKey := trackCachePrefix + id
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var track models.Track
	if err := t.db.Preload("User").Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Preload("Comments.User").First(&track, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to get track")
		return
	}

	if !track.IsPublic() {
		userID, ok := getUserID(ctx)
		if !ok || userID != track.UserID {
			// Hide the existence of private tracks from non-owners.
			utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
			return
		}
	}

	payload := trackResponse(track)
	if track.IsPublic() {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, trackCacheTTL)
	}
	utils.Success(ctx, payload)
}

// UpdateTrack edits track metadata. The object key and size are immutable.
func (t *TrackController) UpdateTrack(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var track models.Track
	if err := t.db.First(&track, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}
	if track.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40313, "not your track")
		return
	}

	var req validation.TrackUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	if errs := validation.Validate(&req); errs != nil {
		utils.ValidationFailed(ctx, 40011, errs)
		return
	}

	// Visibility flips from public to private are feature-gated, but the key
	// prefix is immutable, so the object stays where it was derived.
	if req.Visibility != "" && req.Visibility != track.Visibility {
		if req.Visibility == models.VisibilityPrivate {
			var user models.User
			if err := t.db.First(&user, track.UserID).Error; err != nil {
				utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load user")
				return
			}
			limits, err := quota.GetTierLimit(t.db, user.Tier)
			if err != nil {
				utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load tier limits")
				return
			}
			if err := quota.CheckFeature(limits, models.FeaturePrivateTracks); err != nil {
				utils.QuotaDenied(ctx, 40311, err.Error())
				return
			}
		}
		track.Visibility = req.Visibility
	}

	tagsJSON, err := json.Marshal(normalizeTags(req.Tags))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to encode tags")
		return
	}

	track.Title = utils.Sanitize(strings.TrimSpace(req.Title))
	track.Description = utils.Sanitize(strings.TrimSpace(req.Description))
	track.Tags = string(tagsJSON)

	if err := t.db.Save(&track).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to update track")
		return
	}

	utils.InvalidateByPrefix(trackListCachePrefix)
	utils.InvalidateByPrefix(trackCachePrefix + strconv.Itoa(int(track.ID)))
	utils.Success(ctx, trackResponse(track))
}

// DeleteTrack removes the track row, its stored object and its usage charge.
func (t *TrackController) DeleteTrack(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var track models.Track
	if err := t.db.First(&track, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}
	if track.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40313, "not your track")
		return
	}

	if err := t.store.Delete(ctx.Request.Context(), track.ObjectKey); err != nil {
		utils.StorageFault(ctx, 50210, err)
		return
	}

	if err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", track.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&track).Error
	}); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to delete track")
		return
	}

	if err := quota.ApplyDelta(t.db, track.UserID, quota.Delta{
		Tracks:       -1,
		StorageBytes: -track.SizeBytes,
	}); err != nil {
		utils.Sugar.Errorw("failed to apply usage delta", "err", err, "user_id", track.UserID)
	}

	utils.InvalidateByPrefix(trackListCachePrefix)
	utils.InvalidateByPrefix(trackCachePrefix + strconv.Itoa(int(track.ID)))
	utils.Success(ctx, gin.H{"message": "track deleted"})
}

// CreateComment adds a comment to a track the caller can see.
func (t *TrackController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var track models.Track
	if err := t.db.First(&track, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}
	if !track.IsPublic() && track.UserID != userID {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}

	var req validation.CommentCreate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if errs := validation.Validate(&req); errs != nil {
		utils.ValidationFailed(ctx, 40021, errs)
		return
	}

	comment := models.Comment{
		TrackID: track.ID,
		UserID:  userID,
		Content: utils.Sanitize(strings.TrimSpace(req.Content)),
	}
	if err := t.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create comment")
		return
	}

	utils.InvalidateByPrefix(trackCachePrefix + strconv.Itoa(int(track.ID)))
	utils.Success(ctx, comment)
}

// DeleteComment removes a comment. Allowed for the comment author, the track
// owner or an admin.
func (t *TrackController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var comment models.Comment
	if err := t.db.First(&comment, ctx.Param("commentId")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "comment not found")
		return
	}

	var track models.Track
	if err := t.db.First(&track, comment.TrackID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}

	if comment.UserID != userID && track.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40314, "not allowed to delete this comment")
		return
	}

	if err := t.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix(trackCachePrefix + strconv.Itoa(int(track.ID)))
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func trackResponse(track models.Track) gin.H {
	var tags []string
	_ = json.Unmarshal([]byte(track.Tags), &tags)

	comments := make([]gin.H, 0, len(track.Comments))
	for _, c := range track.Comments {
		comments = append(comments, gin.H{
			"id":         c.ID,
			"content":    c.Content,
			"created_at": c.CreatedAt,
			"author": gin.H{
				"id":         c.User.ID,
				"username":   c.User.Username,
				"avatar_url": c.User.AvatarURL,
			},
		})
	}

	return gin.H{
		"id":               track.ID,
		"title":            track.Title,
		"description":      track.Description,
		"visibility":       track.Visibility,
		"tags":             tags,
		"size_bytes":       track.SizeBytes,
		"duration_seconds": track.DurationSeconds,
		"created_at":       track.CreatedAt,
		"updated_at":       track.UpdatedAt,
		"author": gin.H{
			"id":         track.User.ID,
			"username":   track.User.Username,
			"avatar_url": track.User.AvatarURL,
		},
		"comments": comments,
	}
}

// loadAuthors batch-loads the distinct authors of a track page in one query.
func (t *TrackController) loadAuthors(tracks []models.Track) map[uint]models.User {
	ids := make([]uint, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.UserID)
	}
	ids = utils.UniqueUint(ids)

	authors := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return authors
	}

	var users []models.User
	if err := t.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		utils.Sugar.Errorw("failed to load track authors", "err", err)
		return authors
	}
	for _, u := range users {
		authors[u.ID] = u
	}
	return authors
}

func trackListResponse(tracks []models.Track, authors map[uint]models.User) []gin.H {
	out := make([]gin.H, 0, len(tracks))
	for _, track := range tracks {
		var tags []string
		_ = json.Unmarshal([]byte(track.Tags), &tags)
		author := authors[track.UserID]
		out = append(out, gin.H{
			"id":               track.ID,
			"title":            track.Title,
			"description":      track.Description,
			"visibility":       track.Visibility,
			"tags":             tags,
			"size_bytes":       track.SizeBytes,
			"duration_seconds": track.DurationSeconds,
			"created_at":       track.CreatedAt,
			"author": gin.H{
				"id":         author.ID,
				"username":   author.Username,
				"avatar_url": author.AvatarURL,
			},
		})
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// getUserID extracts the authenticated user ID from the Gin context.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, exists := ctx.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// isAdmin reports whether the authenticated user is a configured admin.
func isAdmin(ctx *gin.Context) bool {
	v, exists := ctx.Get("username")
	if !exists {
		return false
	}
	username, ok := v.(string)
	if !ok {
		return false
	}
	return isAdminUsername(username)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(sizeStr)
	if err != nil || pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
