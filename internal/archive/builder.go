package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Entry is one named blob headed for an archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Build serializes the entries into a ZIP container: one store-only
// local entry per blob in input order, per-entry CRC-32, then the
// central directory and end record. Pure and synchronous; the caller
// owns delivery.
func Build(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, entry := range entries {
		name := SanitizeName(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("archive: entry %d has no name", i)
		}
		mod := entry.Modified
		if mod.IsZero() {
			mod = time.Now()
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: mod,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: create %s: %w", name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("archive: write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return buf.Bytes(), nil
}

// SanitizeName strips path separators and characters that archive
// extractors reject, so a hostile remote id cannot escape the archive
// root.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"\x00", "",
	)
	return strings.Trim(replacer.Replace(name), "._ ")
}
