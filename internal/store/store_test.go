package store

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFrame = []byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x08, 0x06,
	0x00, 0x01, 0x08, 0x00, 0x06, 0x04, 0x00, 0x01,
}

func pcapBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(testFrame), Length: len(testFrame)}
	require.NoError(t, w.WritePacket(ci, testFrame))
	return buf.Bytes()
}

func pcapngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := pcapgo.NewNgWriter(&buf, layers.LinkTypeEthernet)
	require.NoError(t, err)
	ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(testFrame), Length: len(testFrame)}
	require.NoError(t, w.WritePacket(ci, testFrame))
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), []string{".pcap", ".PCAPNG"}, nil)
	require.NoError(t, err)
	return s
}

func TestSavePcap(t *testing.T) {
	s := newTestStore(t)
	data := pcapBytes(t)

	session, err := s.Save("office.pcap", bytes.NewReader(data))
	require.NoError(t, err)

	_, err = uuid.Parse(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "office.pcap", session.Filename)
	assert.Equal(t, session.ID+"_office.pcap", session.StoredName)
	assert.Equal(t, filepath.Join(s.Dir(), session.StoredName), session.Path)
	assert.Equal(t, int64(len(data)), session.Size)
	assert.Equal(t, layers.LinkTypeEthernet.String(), session.LinkType)

	sum := blake3.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), session.Digest)

	stored, err := os.ReadFile(session.Path)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestSavePcapng(t *testing.T) {
	s := newTestStore(t)

	session, err := s.Save("Trace.PcapNG", bytes.NewReader(pcapngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet.String(), session.LinkType)
}

func TestSaveSameNameTwice(t *testing.T) {
	s := newTestStore(t)
	data := pcapBytes(t)

	a, err := s.Save("dup.pcap", bytes.NewReader(data))
	require.NoError(t, err)
	b, err := s.Save("dup.pcap", bytes.NewReader(data))
	require.NoError(t, err)

	assert.NotEqual(t, a.StoredName, b.StoredName)
	assert.FileExists(t, a.Path)
	assert.FileExists(t, b.Path)
}

func TestSaveRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		reason   string
	}{
		{"extension", "notes.txt", []byte("hello"), "invalid file type"},
		{"empty", "empty.pcap", nil, "file is empty"},
		{"not a capture", "fake.pcap", []byte("this is definitely not a capture file"), "not a pcap or pcapng capture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)

			session, err := s.Save(tt.filename, bytes.NewReader(tt.data))
			assert.Nil(t, session)

			var ierr *InvalidInputError
			require.True(t, errors.As(err, &ierr), "got %v", err)
			assert.Equal(t, tt.filename, ierr.Filename)
			assert.Contains(t, ierr.Reason, tt.reason)

			entries, err := os.ReadDir(s.Dir())
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected upload left on disk")
		})
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveReadFailure(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("cut.pcap", brokenReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	var ierr *InvalidInputError
	assert.False(t, errors.As(err, &ierr))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"office.pcap", "office.pcap"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\bob\trace.pcap`, "trace.pcap"},
		{"my capture (1).pcap", "my_capture__1_.pcap"},
		{"..", "capture"},
		{"", "capture"},
		{".hidden.pcap", "hidden.pcap"},
		{"résumé.pcap", "r_sum_.pcap"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func TestReportLookup(t *testing.T) {
	s := newTestStore(t)
	name := ReportName("abc_office.pcap")
	assert.Equal(t, "abc_office.pcap_report.html", name)
	assert.Equal(t, filepath.Join(s.Dir(), name), s.ReportPath("abc_office.pcap"))

	_, err := s.LookupReport(name)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(s.ReportPath("abc_office.pcap"), []byte("<html></html>"), 0o644))
	path, err := s.LookupReport(name)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, name))

	for _, bad := range []string{"", "../" + name, "abc_office.pcap", "a b_report.html"} {
		_, err := s.LookupReport(bad)
		assert.ErrorIs(t, err, ErrNotFound, bad)
	}
}

func TestDescribe(t *testing.T) {
	data := pcapngBytes(t)
	path := filepath.Join(t.TempDir(), "lab capture.pcapng")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	session, err := Describe(path)
	require.NoError(t, err)

	assert.Equal(t, "lab capture.pcapng", session.Filename)
	assert.Equal(t, "lab_capture.pcapng", session.StoredName)
	assert.Equal(t, path, session.Path)
	assert.Equal(t, int64(len(data)), session.Size)
	sum := blake3.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), session.Digest)

	bogus := filepath.Join(t.TempDir(), "bogus.pcap")
	require.NoError(t, os.WriteFile(bogus, []byte("nope"), 0o644))
	_, err = Describe(bogus)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)

	_, err = Describe(filepath.Join(t.TempDir(), "absent.pcap"))
	assert.Error(t, err)
}
