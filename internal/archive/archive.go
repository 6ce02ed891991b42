package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

// DownloadName is the attachment name clients save the archive under.
const DownloadName = "generated-app.zip"

// ErrEmptyArchive is returned when there is no text to package.
var ErrEmptyArchive = errors.New("nothing to package: text is empty")

// Pack stores text, unmodified, as the single deflated entry filename inside a zip.
func Pack(text, filename string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyArchive
	}
	if filename == "" {
		return nil, errors.New("archive entry name is required")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filename,
		Method:   zip.Deflate,
		Modified: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive entry %s: %w", filename, err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to write archive entry %s: %w", filename, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
