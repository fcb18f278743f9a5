package users

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ExportFilename is the download name presented to the caller.
const ExportFilename = "users.csv"

// ExportArtifactPattern matches the transient artifacts this package writes,
// so the sweeper job can recognise orphans.
const ExportArtifactPattern = "users-*.csv"

// exportHeader is the fixed CSV column set. Order must match writeUserRow.
var exportHeader = []string{
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Address",
	"City",
	"State",
	"Zip Code",
	"Country",
}

// WriteCSV serialises users as CSV: one header row, then one row per record.
// Absent optional fields become empty strings.
func WriteCSV(w io.Writer, users []User) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, u := range users {
		if err := writer.Write([]string{
			u.FirstName,
			u.LastName,
			u.Email,
			stringValue(u.Phone),
			stringValue(u.Address),
			stringValue(u.City),
			stringValue(u.State),
			stringValue(u.ZipCode),
			stringValue(u.Country),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// writeExportArtifact writes the CSV to a uniquely named file in dir and
// returns its path. On any write failure the partial file is removed before
// returning, so the only artifact left behind is a complete one.
func writeExportArtifact(dir string, users []User) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("users-%s.csv", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export artifact: %w", err)
	}

	if err := WriteCSV(f, users); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write export artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close export artifact: %w", err)
	}
	return path, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
