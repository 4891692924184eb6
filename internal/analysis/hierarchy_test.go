package analysis

import (
	"fmt"
	"strings"
	"testing"

	"netforensic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phsOutput = `
===================================================================
Protocol Hierarchy Statistics
Filter:

eth                                      frames:1200 bytes:845210
  ip                                     frames:1150 bytes:830110
    udp                                  frames:300 bytes:40210
      dns                                frames:280 bytes:32000
    tcp                                  frames:850 bytes:789900
      tls                                frames:410 bytes:650300
      http                               frames:12 bytes:9800
        data-text-lines                  frames:4 bytes:2100
  arp                                    frames:50 bytes:3000
  ipv6                                   frames:10 bytes:900
===================================================================
`

func TestParseHierarchySimple(t *testing.T) {
	got := ParseHierarchy("tcp frames:120 bytes:15000\ndns frames:5 bytes:400")
	assert.Equal(t, []models.ProtocolRecord{
		{Protocol: "tcp", Frames: 120, Bytes: 15000},
		{Protocol: "dns", Frames: 5, Bytes: 400},
	}, got)
}

func TestParseHierarchyTruncatesByPosition(t *testing.T) {
	got := ParseHierarchy(phsOutput)
	require.Len(t, got, MaxProtocols)

	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Protocol
	}
	// "lines" comes from data-text-lines: the token before frames: is taken
	// as-is. arp and ipv6 are past the cap even though arp outweighs http.
	assert.Equal(t, []string{"eth", "ip", "udp", "dns", "tcp", "tls", "http", "lines"}, names)
	assert.Equal(t, models.ProtocolRecord{Protocol: "eth", Frames: 1200, Bytes: 845210}, got[0])
}

func TestParseHierarchySkipsJunk(t *testing.T) {
	text := strings.Join([]string{
		"Protocol Hierarchy Statistics",
		"tcp frames:abc bytes:10",
		"udp frames:7",
		"",
		"   icmp   frames:3   bytes:294   ",
		"tcp frames:99999999999999999999999 bytes:1",
	}, "\n")

	got := ParseHierarchy(text)
	assert.Equal(t, []models.ProtocolRecord{{Protocol: "icmp", Frames: 3, Bytes: 294}}, got)
}

func TestParseHierarchyEmpty(t *testing.T) {
	got := ParseHierarchy("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseHierarchyIsPure(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "proto%d frames:%d bytes:%d\n", i, i, i*100)
	}
	first := ParseHierarchy(b.String())
	second := ParseHierarchy(b.String())

	assert.Equal(t, first, second)
	assert.Len(t, first, MaxProtocols)
	for i, r := range first {
		assert.Equal(t, fmt.Sprintf("proto%d", i), r.Protocol)
		assert.GreaterOrEqual(t, r.Frames, int64(0))
		assert.GreaterOrEqual(t, r.Bytes, int64(0))
	}
}
