package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"psa-scraper/config"
	"psa-scraper/models"
	"psa-scraper/storage"
)

// imageServer serves generated images at /<w>x<h>.png and /<w>x<h>.jpg and
// counts hits per path.
type imageServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newImageServer(t *testing.T) *imageServer {
	t.Helper()
	s := &imageServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		var width, height int
		var ext string
		switch {
		case r.URL.Path == "/garbage.jpg":
			w.Write([]byte("<html>not an image</html>"))
			return
		case r.URL.Path == "/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if _, err := fmt.Sscanf(r.URL.Path, "/%dx%d.%s", &width, &height, &ext); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		if ext == "jpg" {
			jpeg.Encode(w, img, nil)
			return
		}
		png.Encode(w, img)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *imageServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func downloaderConfig() *config.Config {
	return &config.Config{
		ImageMode:           config.ImageModeMulti,
		MinImageWidth:       300,
		MinImageHeight:      300,
		DownloadConcurrency: 1,
	}
}

func newDownloader(cfg *config.Config, mirror storage.ImageMirror) *Downloader {
	return NewDownloader(resty.New(), cfg, mirror, newTestLogger())
}

func TestDownloadKeepsLargeImage(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()
	d := newDownloader(downloaderConfig(), nil)

	img, err := d.Download(context.Background(), srv.URL+"/350x350.png", dir, "0.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0.jpg"), img.Path)
	assert.Equal(t, 350, img.Width)
	assert.FileExists(t, img.Path)
}

func TestDownloadDiscardsSmallImage(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()
	d := newDownloader(downloaderConfig(), nil)

	_, err := d.Download(context.Background(), srv.URL+"/200x200.png", dir, "0.jpg")
	assert.ErrorIs(t, err, ErrUndersized)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadRejectsBadResponses(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()
	d := newDownloader(downloaderConfig(), nil)

	_, err := d.Download(context.Background(), srv.URL+"/missing.jpg", dir, "0.jpg")
	assert.ErrorIs(t, err, ErrBadStatus)

	_, err = d.Download(context.Background(), srv.URL+"/garbage.jpg", dir, "1.jpg")
	assert.ErrorIs(t, err, ErrUndecodable)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadReencodesForPNGNames(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()
	d := newDownloader(downloaderConfig(), nil)

	img, err := d.Download(context.Background(), srv.URL+"/400x320.jpg", dir, "image_1.png")
	require.NoError(t, err)

	data, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestCollectDedupesCandidates(t *testing.T) {
	srv := newImageServer(t)
	root := t.TempDir()
	layout := storage.NewProductLayout(root)
	d := newDownloader(downloaderConfig(), nil)

	detail := &models.ListingDetail{
		ImageURLs:   []string{srv.URL + "/400x400.png", srv.URL + "/400x400.png"},
		ImageFolder: root,
	}
	images := d.Collect(context.Background(), detail, layout)
	require.Len(t, images, 1)
	assert.Equal(t, 1, srv.hitCount("/400x400.png"))
}

func TestCollectKeepsCandidateIndexInNames(t *testing.T) {
	srv := newImageServer(t)
	root := t.TempDir()
	layout := storage.NewGradeLayout(root)
	cfg := downloaderConfig()
	cfg.DownloadConcurrency = 3
	d := newDownloader(cfg, nil)

	detail := &models.ListingDetail{
		ImageURLs: []string{
			srv.URL + "/400x400.png",
			srv.URL + "/100x100.png",
			srv.URL + "/500x500.png",
		},
		ImageFolder: root,
	}
	images := d.Collect(context.Background(), detail, layout)
	require.Len(t, images, 2)
	assert.Equal(t, "image_1.png", images[0].Filename)
	assert.Equal(t, "image_3.png", images[1].Filename)
}

func TestCollectSingleModeStopsAtFirstValid(t *testing.T) {
	srv := newImageServer(t)
	root := t.TempDir()
	cfg := downloaderConfig()
	cfg.ImageMode = config.ImageModeSingle
	d := newDownloader(cfg, nil)

	detail := &models.ListingDetail{
		ImageURLs: []string{
			srv.URL + "/120x120.png",
			srv.URL + "/600x800.png",
			srv.URL + "/700x700.png",
		},
		ImageFolder: root,
	}
	images := d.Collect(context.Background(), detail, storage.NewProductLayout(root))
	require.Len(t, images, 1)
	assert.Equal(t, "1.jpg", images[0].Filename)
	assert.Zero(t, srv.hitCount("/700x700.png"))
}

func TestCollectHonoursMaxImages(t *testing.T) {
	srv := newImageServer(t)
	root := t.TempDir()
	cfg := downloaderConfig()
	cfg.MaxImages = 2
	cfg.DownloadConcurrency = 4
	d := newDownloader(cfg, nil)

	detail := &models.ListingDetail{
		ImageURLs: []string{
			srv.URL + "/301x301.png",
			srv.URL + "/302x302.png",
			srv.URL + "/303x303.png",
			srv.URL + "/304x304.png",
		},
		ImageFolder: root,
	}
	images := d.Collect(context.Background(), detail, storage.NewProductLayout(root))
	assert.Len(t, images, 2)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Zero(t, srv.hitCount("/303x303.png"))
}

func TestCollectNoCandidates(t *testing.T) {
	d := newDownloader(downloaderConfig(), nil)
	images := d.Collect(context.Background(), &models.ListingDetail{ImageFolder: t.TempDir()}, storage.NewProductLayout(t.TempDir()))
	assert.Empty(t, images)
}

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) Mirror(ctx context.Context, localPath string, data []byte, contentType string) (string, error) {
	args := m.Called(localPath, contentType)
	return args.String(0), args.Error(1)
}

func TestDownloadMirrorsSavedImages(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()
	mirror := new(mockMirror)
	mirror.On("Mirror", filepath.Join(dir, "image_1.png"), "image/png").Return("s3://b/k", nil).Once()

	d := newDownloader(downloaderConfig(), mirror)
	_, err := d.Download(context.Background(), srv.URL+"/300x300.png", dir, "image_1.png")
	require.NoError(t, err)

	_, err = d.Download(context.Background(), srv.URL+"/20x20.png", dir, "image_2.png")
	require.Error(t, err)

	mirror.AssertExpectations(t)
}
