// Package export provides export/import service interfaces.
package export

import "github.com/kimhsiao/photolib/backend/internal/models"

// ArchiverInterface defines the contract for library archive services.
type ArchiverInterface interface {
	// Export writes u to an archive and reports what was written.
	Export(u *models.User, outputPath string) (*ExportResult, error)

	// Import reads a user back from an archive.
	Import(archivePath string) (*ImportResult, error)
}

// Ensure *Archiver implements the interface at compile time.
var _ ArchiverInterface = (*Archiver)(nil)
