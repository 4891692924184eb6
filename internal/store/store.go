// Package store keeps uploaded captures and generated reports in a single
// flat directory.
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/gopacket/pcapgo"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"netforensic/internal/logging"
	"netforensic/internal/models"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// InvalidInputError rejects an upload that is not an acceptable capture.
type InvalidInputError struct {
	Filename string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid capture %q: %s", e.Filename, e.Reason)
}

const reportSuffix = "_report.html"

// Store manages the storage directory.
type Store struct {
	dir     string
	allowed []string
	logger  *slog.Logger
}

// New creates the storage directory if needed. allowed lists the accepted
// capture extensions (".pcap", ".pcapng", ...), matched case-insensitively.
func New(dir string, allowed []string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	exts := make([]string, 0, len(allowed))
	for _, ext := range allowed {
		exts = append(exts, strings.ToLower(ext))
	}
	return &Store{
		dir:     dir,
		allowed: exts,
		logger:  logging.Component(logger, "store"),
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Allowed reports whether filename carries an accepted capture extension.
func (s *Store) Allowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range s.allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// Save writes an uploaded capture under a fresh session id, hashing it on
// the way in. The file is removed again if it turns out to be empty or not
// a libpcap/pcapng capture.
func (s *Store) Save(filename string, r io.Reader) (*models.CaptureSession, error) {
	if !s.Allowed(filename) {
		return nil, &InvalidInputError{
			Filename: filename,
			Reason:   fmt.Sprintf("invalid file type, only %s allowed", strings.Join(s.allowed, ", ")),
		}
	}

	id := uuid.NewString()
	stored := id + "_" + SanitizeName(filename)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}

	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if size == 0 {
		os.Remove(path)
		return nil, &InvalidInputError{Filename: filename, Reason: "file is empty"}
	}

	linkType, err := detectLinkType(path)
	if err != nil {
		os.Remove(path)
		return nil, &InvalidInputError{Filename: filename, Reason: err.Error()}
	}

	session := &models.CaptureSession{
		ID:         id,
		Filename:   filename,
		StoredName: stored,
		Path:       path,
		Size:       size,
		Digest:     hex.EncodeToString(hasher.Sum(nil)),
		LinkType:   linkType,
	}
	s.logger.Info("capture stored",
		"session", id, "file", filename, "size", size, "link_type", linkType)
	return session, nil
}

// Describe builds a session for a capture that already exists on disk,
// outside the storage directory. Nothing is copied.
func Describe(path string) (*models.CaptureSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	hasher := blake3.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}

	name := filepath.Base(path)
	if size == 0 {
		return nil, &InvalidInputError{Filename: name, Reason: "file is empty"}
	}
	linkType, err := detectLinkType(path)
	if err != nil {
		return nil, &InvalidInputError{Filename: name, Reason: err.Error()}
	}

	return &models.CaptureSession{
		ID:         uuid.NewString(),
		Filename:   name,
		StoredName: SanitizeName(name),
		Path:       path,
		Size:       size,
		Digest:     hex.EncodeToString(hasher.Sum(nil)),
		LinkType:   linkType,
	}, nil
}

// ReportPath is where the report for a stored capture is written.
func (s *Store) ReportPath(storedName string) string {
	return filepath.Join(s.dir, ReportName(storedName))
}

// LookupReport resolves a report artifact name to its path. Names that are
// not plain report file names, or that don't exist, give ErrNotFound.
func (s *Store) LookupReport(name string) (string, error) {
	if !strings.HasSuffix(name, reportSuffix) || SanitizeName(name) != name {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// ReportName derives the report artifact name from a stored capture name.
func ReportName(storedName string) string {
	return SanitizeName(storedName) + reportSuffix
}

// SanitizeName reduces a client-supplied name to a safe flat file name:
// directory parts are dropped and anything outside [A-Za-z0-9._-] becomes '_'.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)

	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)

	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		return "capture"
	}
	return clean
}

// detectLinkType checks the capture header and returns its link-layer type.
func detectLinkType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r, err := pcapgo.NewReader(f); err == nil {
		return r.LinkType().String(), nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions); err == nil {
		return r.LinkType().String(), nil
	}

	return "", errors.New("not a pcap or pcapng capture")
}
