package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"psa-scraper/config"
	"psa-scraper/extract"
	"psa-scraper/models"
	"psa-scraper/storage"
	"psa-scraper/utils"
)

var (
	ErrBadStatus   = errors.New("image: non-200 response")
	ErrUndecodable = errors.New("image: not decodable")
	ErrUndersized  = errors.New("image: below minimum size")
)

// Downloader fetches candidate image URLs, keeps the ones that decode and
// meet the minimum size, and writes them into a listing folder.
type Downloader struct {
	client      *resty.Client
	mirror      storage.ImageMirror
	logger      *utils.Logger
	mode        string
	maxImages   int
	minWidth    int
	minHeight   int
	concurrency int
}

// NewDownloader wires a downloader. mirror may be nil.
func NewDownloader(client *resty.Client, cfg *config.Config, mirror storage.ImageMirror, logger *utils.Logger) *Downloader {
	return &Downloader{
		client:      client,
		mirror:      mirror,
		logger:      logger,
		mode:        cfg.ImageMode,
		maxImages:   cfg.MaxImages,
		minWidth:    cfg.MinImageWidth,
		minHeight:   cfg.MinImageHeight,
		concurrency: cfg.DownloadConcurrency,
	}
}

// Download fetches one image and saves it as folder/name. Nothing is written
// unless the body decodes and meets the minimum size.
func (d *Downloader) Download(ctx context.Context, imageURL, folder, name string) (*models.DownloadedImage, error) {
	resp, err := d.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", imageURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBadStatus, imageURL, resp.StatusCode())
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", imageURL, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, imageURL, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() < d.minWidth || bounds.Dy() < d.minHeight {
		return nil, fmt.Errorf("%w: %s is %dx%d", ErrUndersized, imageURL, bounds.Dx(), bounds.Dy())
	}

	// .png targets are re-encoded so the file matches its extension.
	if strings.EqualFold(filepath.Ext(name), ".png") && format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode %s: %w", imageURL, err)
		}
		data = buf.Bytes()
	}

	path := filepath.Join(folder, name)
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}

	if d.mirror != nil {
		loc, err := d.mirror.Mirror(ctx, path, data, contentTypeFor(name))
		if err != nil {
			d.logger.Warn("[download] Mirror of %s failed: %v", path, err)
		} else {
			d.logger.Debug("[download] Mirrored %s → %s", path, loc)
		}
	}

	return &models.DownloadedImage{
		Filename:  name,
		Path:      path,
		SourceURL: imageURL,
		Bytes:     len(data),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}, nil
}

// Collect downloads a listing's images into its folder. Filenames follow the
// layout and are numbered by candidate position after dedup, so a skipped
// candidate leaves a gap rather than shifting later names.
func (d *Downloader) Collect(ctx context.Context, detail *models.ListingDetail, layout storage.Layout) []*models.DownloadedImage {
	candidates := extract.DedupeURLs(detail.ImageURLs)
	if len(candidates) == 0 {
		return nil
	}

	if d.mode == config.ImageModeSingle {
		return d.collectFirst(ctx, candidates, detail.ImageFolder, layout)
	}
	return d.collectAll(ctx, candidates, detail.ImageFolder, layout)
}

func (d *Downloader) collectFirst(ctx context.Context, candidates []string, folder string, layout storage.Layout) []*models.DownloadedImage {
	for i, u := range candidates {
		if ctx.Err() != nil {
			return nil
		}
		img, err := d.Download(ctx, u, folder, layout.ImageName(i))
		if err != nil {
			d.logger.Warn("[download] Skipped: %v", err)
			continue
		}
		return []*models.DownloadedImage{img}
	}
	return nil
}

// collectAll works through candidates in batches no larger than the number
// of images still wanted, so a cap is never overshot on disk.
func (d *Downloader) collectAll(ctx context.Context, candidates []string, folder string, layout storage.Layout) []*models.DownloadedImage {
	var saved []*models.DownloadedImage
	next := 0

	for next < len(candidates) && ctx.Err() == nil {
		batch := len(candidates) - next
		if d.maxImages > 0 {
			if want := d.maxImages - len(saved); want < batch {
				batch = want
			}
		}
		if batch <= 0 {
			break
		}

		results := make([]*models.DownloadedImage, batch)
		pool := utils.NewWorkerPool(d.concurrency, 0)
		for j := 0; j < batch; j++ {
			i, u := next+j, candidates[next+j]
			slot := j
			pool.Submit(func() {
				img, err := d.Download(ctx, u, folder, layout.ImageName(i))
				if err != nil {
					d.logger.Warn("[download] Skipped: %v", err)
					return
				}
				results[slot] = img
			})
		}
		pool.Wait()

		for _, img := range results {
			if img != nil {
				saved = append(saved, img)
			}
		}
		next += batch
	}

	return saved
}

// writeFileAtomic writes through a temp file in the same directory so an
// interrupted run never leaves a truncated image behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
