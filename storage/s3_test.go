package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Presigning is pure signature math; no network traffic happens, so the
// client can be exercised fully offline.
func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{
		Endpoint:        "minio.local:9000",
		Region:          "us-east-1",
		Bucket:          "wipshare-audio",
		AccessKeyID:     "testkey",
		SecretAccessKey: "testsecret",
		UsePathStyle:    true,
		Insecure:        true,
	})
	require.NoError(t, err)
	return c
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(Config{Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s"})
	assert.ErrorContains(t, err, "bucket")

	_, err = New(Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"})
	assert.ErrorContains(t, err, "region")

	_, err = New(Config{Bucket: "b", Region: "us-east-1"})
	assert.ErrorContains(t, err, "credentials")
}

func TestPresignUpload(t *testing.T) {
	c := testClient(t)

	rawURL, key, err := c.PresignUpload(context.Background(), "public/1/202608/abc-song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "public/1/202608/abc-song.mp3", key)

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.True(t, strings.Contains(u.Path, "public/1/202608/abc-song.mp3"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Contains(t, u.Query().Get("X-Amz-Credential"), "testkey")
}

func TestPresignDownload(t *testing.T) {
	c := testClient(t)

	rawURL, err := c.PresignDownload(context.Background(), "private/7/202608/def-demo.wav")
	require.NoError(t, err)

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.True(t, strings.Contains(u.Path, "private/7/202608/def-demo.wav"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignURLsDifferPerKey(t *testing.T) {
	c := testClient(t)

	a, _, err := c.PresignUpload(context.Background(), "public/1/202608/a")
	require.NoError(t, err)
	b, _, err := c.PresignUpload(context.Background(), "public/1/202608/b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
