package reviews

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/flatearth/internal/blob/memory"
	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/metrics"
	"github.com/mmynk/flatearth/internal/models"
	"github.com/mmynk/flatearth/internal/storage"
)

// memoryDocs is a storage.ReviewStore held in a slice.
type memoryDocs struct {
	mu       sync.Mutex
	clock    *storage.Clock
	reviews  []models.Review
	failNext bool
	listErr  error
	seq      int
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{clock: storage.NewClock(0)}
}

func (m *memoryDocs) CreateReview(_ context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("write rejected")
	}
	return m.clock.Stamp(func(ts int64) error {
		m.seq++
		review.ID = strings.Repeat("r", m.seq)
		review.CreatedAt = ts
		m.reviews = append(m.reviews, *review)
		return nil
	})
}

func (m *memoryDocs) ListReviews(_ context.Context) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Review{}, m.reviews...), nil
}

func newTestStore() (*Store, *memoryDocs, *memory.Store) {
	docs := newMemoryDocs()
	blobs := memory.New("http://localhost:8080")
	s := New(docs, blobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return s, docs, blobs
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestStore_CreateEchoesInput(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	first, err := s.Create(ctx, Input{Title: "first", Body: "b", Location: geo.Coordinate{Lat: 3, Lon: 4}, AuthorID: "u0"})
	require.NoError(t, err)

	got, err := s.Create(ctx, Input{
		Title:    "T",
		Body:     "B",
		Location: geo.Coordinate{Lat: 1.0, Lon: 2.0},
		AuthorID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "B", got.Body)
	assert.Equal(t, geo.Coordinate{Lat: 1.0, Lon: 2.0}, got.Location)
	assert.Equal(t, "u1", got.AuthorID)
	assert.Empty(t, got.ImageURL)
	assert.NotEmpty(t, got.ID)
	assert.GreaterOrEqual(t, got.CreatedAt, first.CreatedAt)
}

func TestStore_CreateWithImage(t *testing.T) {
	s, docs, blobs := newTestStore()

	got, err := s.Create(context.Background(), Input{
		Title:       "Louvre",
		Body:        "Crowded",
		Location:    geo.Coordinate{Lat: 48.8606, Lon: 2.3376},
		AuthorID:    "u1",
		AuthorEmail: "ada@example.com",
		Image:       &Image{Filename: "my photo.png", Data: pngHeader},
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/media/1700000000123_my_photo.png", got.ImageURL)
	obj, ok := blobs.Get("1700000000123_my_photo.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)

	stored, _ := docs.ListReviews(context.Background())
	require.Len(t, stored, 1)
	assert.Equal(t, got.ImageURL, stored[0].ImageURL)
}

func TestStore_CreateValidation(t *testing.T) {
	valid := func() Input {
		return Input{Title: "T", Body: "B", Location: geo.Coordinate{Lat: 1, Lon: 2}, AuthorID: "u1"}
	}
	tests := []struct {
		name    string
		mutate  func(*Input)
		message string
	}{
		{"empty title", func(in *Input) { in.Title = "  " }, "title is required"},
		{"empty body", func(in *Input) { in.Body = "" }, "body is required"},
		{"no author", func(in *Input) { in.AuthorID = "" }, "authorid is required"},
		{"latitude out of range", func(in *Input) { in.Location.Lat = 90.5 }, ""},
		{"longitude out of range", func(in *Input) { in.Location.Lon = -181 }, ""},
		{"empty image", func(in *Input) { in.Image = &Image{Filename: "a.png"} }, "image is empty"},
		{"not an image", func(in *Input) {
			in.Image = &Image{Filename: "a.txt", Data: []byte("hello, plain text")}
		}, "attachment must be an image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, docs, blobs := newTestStore()
			in := valid()
			tt.mutate(&in)

			_, err := s.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
			if tt.message != "" {
				assert.Equal(t, tt.message, apperrors.MessageOf(err))
			}
			assert.Empty(t, docs.reviews)
			assert.Zero(t, blobs.Len())
		})
	}
}

func TestStore_UploadFailureWritesNothing(t *testing.T) {
	s, docs, blobs := newTestStore()
	blobs.FailNext(1)

	_, err := s.Create(context.Background(), Input{
		Title: "T", Body: "B", AuthorID: "u1",
		Image: &Image{Filename: "a.png", Data: pngHeader},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStore))
	assert.Empty(t, docs.reviews)
}

func TestStore_WriteFailureOrphansImage(t *testing.T) {
	s, docs, blobs := newTestStore()
	docs.failNext = true
	before := testutil.ToFloat64(metrics.OrphanedImagesTotal)

	_, err := s.Create(context.Background(), Input{
		Title: "T", Body: "B", AuthorID: "u1",
		Image: &Image{Filename: "a.png", Data: pngHeader},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStore))
	assert.Empty(t, docs.reviews)
	assert.Equal(t, 1, blobs.Len(), "uploaded image is left in place")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanedImagesTotal))
}

func TestStore_ListAll(t *testing.T) {
	s, docs, _ := newTestStore()
	ctx := context.Background()

	list, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, Input{Title: title, Body: "x", AuthorID: "u1"})
		require.NoError(t, err)
	}
	list, err = s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].Title, list[1].Title, list[2].Title})

	docs.listErr = errors.New("connection refused")
	_, err = s.ListAll(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrStore))
}
