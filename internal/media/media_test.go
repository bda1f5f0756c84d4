package media

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/photolib/backend/internal/errors"
)

// writePNG writes a small solid image to dir/name.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	return path
}

func TestInspect_png(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "sunset.png", 12, 7)
	mtime := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	info, err := Inspect(path)
	require.NoError(t, err)

	assert.Equal(t, path, info.Path)
	assert.Equal(t, "image/png", info.MIME)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 12, info.Width)
	assert.Equal(t, 7, info.Height)
	assert.True(t, info.ModTime.Equal(mtime))
}

func TestInspect_rejects(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(text, []byte("just some text"), 0644))

	good := writePNG(t, dir, "cut.png", 16, 16)
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	truncated := filepath.Join(dir, "truncated.png")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)/2], 0644))

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"missing", filepath.Join(dir, "nope.png"), errors.ErrNotFound},
		{"directory", dir, errors.ErrInvalid},
		{"not an image", text, errors.ErrInvalid},
		{"truncated", truncated, errors.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestStockDir_StockPhotos(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "b.png", 4, 4)
	writeJPEG(t, dir, "a.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writePNG(t, filepath.Join(dir, "sub"), "nested.png", 2, 2)

	photos, err := NewStockDir(dir).StockPhotos()
	require.NoError(t, err)
	require.Len(t, photos, 2)

	assert.Equal(t, filepath.Join(dir, "a.jpg"), photos[0].FilePath())
	assert.Equal(t, "a.jpg", photos[0].Caption())
	assert.Equal(t, filepath.Join(dir, "b.png"), photos[1].FilePath())
	assert.Equal(t, 0, photos[1].DateTime().Nanosecond())
}

func TestStockDir_missing(t *testing.T) {
	s := NewStockDir(filepath.Join(t.TempDir(), "absent"))
	_, err := s.StockPhotos()
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
