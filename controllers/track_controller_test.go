package controllers

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/models"
)

var testRedis *miniredis.Miniredis

func TestMain(m *testing.M) {
	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniredis: %v\n", err)
		os.Exit(1)
	}
	testRedis = mr
	host, port, _ := net.SplitHostPort(mr.Addr())
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("REDIS_HOST", host)
	os.Setenv("REDIS_PORT", port)
	gin.SetMode(gin.TestMode)

	code := m.Run()
	mr.Close()
	os.Exit(code)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Track{}, &models.Comment{}))
	return db
}

func getTrack(tc *TrackController, trackID uint, viewerID uint) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	id := strconv.Itoa(int(trackID))
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/tracks/"+id, nil)
	ctx.Params = gin.Params{{Key: "id", Value: id}}
	if viewerID != 0 {
		ctx.Set("user_id", viewerID)
	}
	tc.GetTrack(ctx)
	return w
}

func TestGetTrackCachesPublicDetail(t *testing.T) {
	testRedis.FlushAll()
	db := newTestDB(t)
	tc := NewTrackController(db, nil)

	owner := models.User{Username: "anna"}
	require.NoError(t, db.Create(&owner).Error)
	track := models.Track{
		UserID:     owner.ID,
		Title:      "first take",
		Visibility: models.VisibilityPublic,
		ObjectKey:  "public/1/202608/aaa-first.wav",
		SizeBytes:  1024,
	}
	require.NoError(t, db.Create(&track).Error)

	w := getTrack(tc, track.ID, 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "first take")

	cacheKey := trackCachePrefix + strconv.Itoa(int(track.ID))
	assert.True(t, testRedis.Exists(cacheKey))

	// A direct row change without invalidation keeps serving the cached
	// response, proving the second read never hit the database.
	require.NoError(t, db.Model(&models.Track{}).Where("id = ?", track.ID).Update("title", "renamed").Error)

	w = getTrack(tc, track.ID, 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "first take")
	assert.NotContains(t, w.Body.String(), "renamed")
}

func TestGetTrackPrivateNeverCached(t *testing.T) {
	testRedis.FlushAll()
	db := newTestDB(t)
	tc := NewTrackController(db, nil)

	owner := models.User{Username: "bram"}
	require.NoError(t, db.Create(&owner).Error)
	track := models.Track{
		UserID:     owner.ID,
		Title:      "secret demo",
		Visibility: models.VisibilityPrivate,
		ObjectKey:  "private/1/202608/bbb-secret.wav",
		SizeBytes:  2048,
	}
	require.NoError(t, db.Create(&track).Error)

	cacheKey := trackCachePrefix + strconv.Itoa(int(track.ID))

	// Non-owners get a 404, indistinguishable from a missing track.
	w := getTrack(tc, track.ID, owner.ID+1)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, testRedis.Exists(cacheKey))

	// The owner sees it, and the response still must not enter the cache,
	// where a later anonymous hit would bypass the visibility check.
	w = getTrack(tc, track.ID, owner.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "secret demo")
	assert.False(t, testRedis.Exists(cacheKey))
}
