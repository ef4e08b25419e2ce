package xmltv

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
)

const doctype = `<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n"

// Marshal renders the document with declaration, doctype, and two-space
// indentation. Output is deterministic for identical input.
func Marshal(tv *TV) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(doctype)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteFile serializes tv to path atomically: the document is written to a
// temp file in the same directory and renamed over the target, so a reader
// never sees a partial guide and a failed run leaves any previous file
// untouched. A ".gz" or ".br" suffix selects on-the-fly compression.
func WriteFile(tv *TV, path string) error {
	data, err := Marshal(tv)
	if err != nil {
		return fmt.Errorf("xmltv marshal: %w", err)
	}
	if data, err = encode(data, path); err != nil {
		return err
	}

	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, ".xmltv-*.tmp")
	if err != nil {
		return fmt.Errorf("xmltv write: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("xmltv write: %w", writeErr)
		}
		return fmt.Errorf("xmltv write close: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("xmltv write rename: %w", err)
	}
	return nil
}

// encode compresses data according to the output file extension.
func encode(data []byte, path string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("xmltv gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("xmltv gzip: %w", err)
		}
	case ".br":
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("xmltv brotli: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("xmltv brotli: %w", err)
		}
	default:
		return data, nil
	}
	return buf.Bytes(), nil
}
