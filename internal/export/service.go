// Package export writes one user's library to a portable archive and reads
// it back.
package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/models"
	"github.com/kimhsiao/photolib/backend/internal/store"
)

const (
	// FormatVersion is written into every manifest.
	FormatVersion = "1.0"

	manifestName = "manifest.json"
	userName     = "user.json"

	// maxEntrySize bounds how much of one archive entry is read.
	maxEntrySize = 64 << 20
)

// ExportManifest represents the export manifest metadata.
type ExportManifest struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Username   string    `json:"username"`
	AlbumCount int       `json:"album_count"`
	PhotoCount int       `json:"photo_count"`
	Checksum   string    `json:"checksum"`
}

// ExportResult represents the result of an export operation.
type ExportResult struct {
	FilePath   string
	SizeBytes  int64
	AlbumCount int
	PhotoCount int
	Checksum   string
	Duration   time.Duration
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	User     *models.User
	Manifest *ExportManifest
	Duration time.Duration
}

// Archiver exports and imports user archives.
type Archiver struct {
	// Directory used when Export is given no output path
	exportDir string
	now       func() time.Time
}

// NewArchiver creates an Archiver that defaults exports into exportDir.
func NewArchiver(exportDir string) *Archiver {
	return &Archiver{exportDir: exportDir, now: time.Now}
}

// DefaultPath returns where an export of username taken at t is written
// when no path is given.
func (a *Archiver) DefaultPath(username string, t time.Time) string {
	return filepath.Join(a.exportDir, fmt.Sprintf("%s_%s.tar.gz", username, t.Format("20060102_150405")))
}

// Export writes a gzip-compressed tar holding the manifest and u's record.
// The archive appears at outputPath only once it is complete.
func (a *Archiver) Export(u *models.User, outputPath string) (*ExportResult, error) {
	startTime := a.now()
	if u == nil {
		return nil, errors.New(errors.ErrInvalid, "no user to export")
	}

	payload, err := store.EncodeUser(u)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "encode user", err)
	}

	manifest := ExportManifest{
		Version:    FormatVersion,
		ExportedAt: startTime.UTC(),
		Username:   u.Username(),
		AlbumCount: len(u.Albums()),
		PhotoCount: u.PhotoCount(),
		Checksum:   checksum(payload),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "encode manifest", err)
	}

	if outputPath == "" {
		outputPath = a.DefaultPath(u.Username(), startTime)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "create exports directory", err)
	}

	sizeBytes, err := createArchive(outputPath, startTime, map[string][]byte{
		manifestName: manifestData,
		userName:     payload,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "write archive", err)
	}

	logging.Info("Library exported", map[string]interface{}{
		"username": u.Username(),
		"path":     outputPath,
		"bytes":    sizeBytes,
	})
	return &ExportResult{
		FilePath:   outputPath,
		SizeBytes:  sizeBytes,
		AlbumCount: manifest.AlbumCount,
		PhotoCount: manifest.PhotoCount,
		Checksum:   manifest.Checksum,
		Duration:   time.Since(startTime),
	}, nil
}

// Import reads an archive written by Export, verifies the payload against
// the manifest checksum and decodes the user. Nothing is extracted to disk.
func (a *Archiver) Import(archivePath string) (*ImportResult, error) {
	startTime := a.now()

	entries, err := readArchive(archivePath)
	if err != nil {
		return nil, err
	}

	manifestData, ok := entries[manifestName]
	if !ok {
		return nil, errors.New(errors.ErrCorruptedArchive, "archive has no manifest")
	}
	payload, ok := entries[userName]
	if !ok {
		return nil, errors.New(errors.ErrCorruptedArchive, "archive has no user record")
	}

	var manifest ExportManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptedArchive, "manifest is not valid JSON", err)
	}
	if manifest.Version != FormatVersion {
		return nil, errors.Newf(errors.ErrCorruptedArchive, "unsupported archive version %q", manifest.Version)
	}
	if manifest.Checksum == "" {
		return nil, errors.New(errors.ErrCorruptedArchive, "manifest missing checksum")
	}
	if err := verifyChecksum(payload, manifest.Checksum); err != nil {
		return nil, err
	}

	u, err := store.DecodeUser(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorruptedArchive, "decode user record", err)
	}
	if u.Username() != manifest.Username {
		return nil, errors.Newf(errors.ErrCorruptedArchive, "manifest names %q but record holds %q", manifest.Username, u.Username())
	}

	return &ImportResult{
		User:     u,
		Manifest: &manifest,
		Duration: time.Since(startTime),
	}, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// verifyChecksum compares data's SHA-256 with the expected hex digest.
func verifyChecksum(data []byte, expected string) error {
	if actual := checksum(data); actual != expected {
		return errors.Newf(errors.ErrCorruptedArchive, "checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// createArchive writes files to a temp file beside targetPath, then renames
// it into place. Entries are written in name order.
func createArchive(targetPath string, modTime time.Time, files map[string][]byte) (int64, error) {
	tempPath := targetPath + ".tmp"

	outFile, err := os.Create(tempPath)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			outFile.Close()
			os.Remove(tempPath)
		}
	}()

	gzw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gzw)

	for _, name := range []string{manifestName, userName} {
		data := files[name]
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return 0, err
		}
		if _, err := tw.Write(data); err != nil {
			return 0, err
		}
	}

	// Close writers
	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gzw.Close(); err != nil {
		return 0, err
	}
	if err := outFile.Sync(); err != nil {
		return 0, err
	}
	if err := outFile.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return 0, err
	}
	committed = true
	return info.Size(), nil
}

// readArchive returns the regular-file entries of a gzip-compressed tar,
// keyed by name.
func readArchive(archivePath string) (map[string][]byte, error) {
	inFile, err := os.Open(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "archive %q not found", archivePath)
		}
		return nil, errors.Wrap(errors.ErrImportFailed, "open archive", err)
	}
	defer inFile.Close()

	gzr, err := gzip.NewReader(inFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorruptedArchive, "archive is not gzip data", err)
	}
	defer gzr.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCorruptedArchive, "read archive entry", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(tr, maxEntrySize+1))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCorruptedArchive, "read "+header.Name, err)
		}
		if n > maxEntrySize {
			return nil, errors.Newf(errors.ErrCorruptedArchive, "entry %q is too large", header.Name)
		}
		entries[header.Name] = buf.Bytes()
	}
	return entries, nil
}
