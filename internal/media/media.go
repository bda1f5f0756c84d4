// Package media finds and validates the image files the library imports.
package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/models"
)

// ImageInfo describes an image file that decoded successfully.
type ImageInfo struct {
	// Absolute path of the file
	Path string
	// MIME type sniffed from the file contents
	MIME string
	// Format name reported by the decoder
	Format  string
	Width   int
	Height  int
	ModTime time.Time
}

// Inspect checks that path is a readable, decodable image and returns its
// absolute path, type and dimensions.
func Inspect(path string) (*ImageInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "resolve image path", err)
	}

	stat, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "image %q not found", abs)
		}
		return nil, errors.Wrap(errors.ErrStorageRead, "stat image", err)
	}
	if stat.IsDir() {
		return nil, errors.Newf(errors.ErrInvalid, "%q is a directory", abs)
	}

	mtype, err := mimetype.DetectFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "sniff image type", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, errors.Newf(errors.ErrInvalid, "%q is %s, not an image", abs, mtype.String())
	}

	info, err := decode(abs)
	if err != nil {
		return nil, err
	}
	info.Path = abs
	info.MIME = mtype.String()
	info.ModTime = stat.ModTime()
	return info, nil
}

// decode fully decodes the file so truncated images are rejected, not just
// ones with a bad header.
func decode(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "open image", err)
	}
	_, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, fmt.Sprintf("decode %s header", filepath.Base(path)), err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, fmt.Sprintf("decode %s", filepath.Base(path)), err)
	}
	bounds := img.Bounds()
	return &ImageInfo{
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// StockDir lists the images in a well-known directory. It implements
// store.StockSource.
type StockDir struct {
	dir string
}

// NewStockDir creates a StockDir over dir.
func NewStockDir(dir string) *StockDir {
	return &StockDir{dir: dir}
}

// Dir returns the scanned directory.
func (s *StockDir) Dir() string {
	return s.dir
}

// Scan returns every decodable image directly inside the directory, sorted
// by file name. Files that are not images or fail to decode are skipped.
func (s *StockDir) Scan() ([]*ImageInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "stock directory %q not found", s.dir)
		}
		return nil, errors.Wrap(errors.ErrStorageRead, "read stock directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var images []*ImageInfo
	for _, name := range names {
		info, err := Inspect(filepath.Join(s.dir, name))
		if err != nil {
			logging.Debug("Skipping stock file", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			continue
		}
		images = append(images, info)
	}
	return images, nil
}

// StockPhotos turns every image Scan finds into a Photo dated by the
// file's modification time.
func (s *StockDir) StockPhotos() ([]*models.Photo, error) {
	images, err := s.Scan()
	if err != nil {
		return nil, err
	}
	photos := make([]*models.Photo, 0, len(images))
	for _, img := range images {
		photos = append(photos, models.NewPhoto(img.Path, img.ModTime))
	}
	return photos, nil
}
