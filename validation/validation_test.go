package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(errs []FieldError) []string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}

func TestPresignRequestValid(t *testing.T) {
	req := PresignRequest{Filename: "take1.wav", SizeBytes: 1024, DurationSeconds: 120}
	assert.Nil(t, Validate(&req))
}

func TestPresignRequestCollectsAllViolations(t *testing.T) {
	// Missing filename AND non-positive size: both must be reported at once.
	req := PresignRequest{SizeBytes: 0, DurationSeconds: -1}
	errs := Validate(&req)
	require.Len(t, errs, 3)
	assert.ElementsMatch(t, []string{"filename", "size_bytes", "duration_seconds"}, fieldNames(errs))
}

func TestPresignRequestFilenameTooLong(t *testing.T) {
	req := PresignRequest{Filename: strings.Repeat("a", 256), SizeBytes: 1}
	errs := Validate(&req)
	require.Len(t, errs, 1)
	assert.Equal(t, "filename", errs[0].Field)
	assert.Contains(t, errs[0].Message, "255")
}

func TestTrackCreateCollectsAllViolations(t *testing.T) {
	req := TrackCreate{
		Title:       "",
		Description: strings.Repeat("x", 1001),
		ObjectKey:   "public/1/202608/abc-take1.wav",
		SizeBytes:   100,
	}
	errs := Validate(&req)
	require.Len(t, errs, 2)
	assert.ElementsMatch(t, []string{"title", "description"}, fieldNames(errs))
}

func TestTrackCreateVisibilityOneOf(t *testing.T) {
	req := TrackCreate{
		Title:      "Demo",
		Visibility: "unlisted",
		ObjectKey:  "public/1/202608/abc-take1.wav",
		SizeBytes:  100,
	}
	errs := Validate(&req)
	require.Len(t, errs, 1)
	assert.Equal(t, "visibility", errs[0].Field)
	assert.Contains(t, errs[0].Message, "public")
	assert.Contains(t, errs[0].Message, "private")
}

func TestTrackCreateApplyDefaults(t *testing.T) {
	req := TrackCreate{Title: "Demo", ObjectKey: "k", SizeBytes: 1}
	require.Nil(t, Validate(&req))
	req.ApplyDefaults()
	assert.Equal(t, "public", req.Visibility)

	explicit := TrackCreate{Title: "Demo", ObjectKey: "k", SizeBytes: 1, Visibility: "private"}
	explicit.ApplyDefaults()
	assert.Equal(t, "private", explicit.Visibility)
}

func TestTrackCreateTagConstraints(t *testing.T) {
	tags := make([]string, 17)
	for i := range tags {
		tags[i] = "tag"
	}
	req := TrackCreate{Title: "Demo", ObjectKey: "k", SizeBytes: 1, Tags: tags}
	errs := Validate(&req)
	require.Len(t, errs, 1)
	assert.Equal(t, "tags", errs[0].Field)

	req.Tags = []string{"ok", strings.Repeat("z", 33)}
	errs = Validate(&req)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Field, "tags")
}

func TestCommentCreate(t *testing.T) {
	assert.Nil(t, Validate(&CommentCreate{Content: "sounds great"}))

	errs := Validate(&CommentCreate{})
	require.Len(t, errs, 1)
	assert.Equal(t, "content", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)

	errs = Validate(&CommentCreate{Content: strings.Repeat("y", 2001)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "2000")
}
