package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"netforensic/internal/models"
)

// MaxProtocols caps the protocol records kept from one hierarchy report.
const MaxProtocols = 8

// A hierarchy line looks like "    tcp    frames:120 bytes:15000".
// Indentation is ignored; nesting depth is not reconstructed.
var hierarchyLine = regexp.MustCompile(`(\w+)\s+frames:(\d+)\s+bytes:(\d+)`)

// ParseHierarchy extracts protocol records from `tshark -z io,phs` output.
// Records keep the order they appear in, and only the first MaxProtocols are
// returned: this is position-based truncation, not a top-N by volume.
// Lines that don't match (headers, separators, filters) are skipped.
func ParseHierarchy(text string) []models.ProtocolRecord {
	records := make([]models.ProtocolRecord, 0, MaxProtocols)

	for _, line := range strings.Split(text, "\n") {
		if len(records) == MaxProtocols {
			break
		}

		m := hierarchyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		frames, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue // overflow
		}
		size, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			continue
		}

		records = append(records, models.ProtocolRecord{
			Protocol: m[1],
			Frames:   frames,
			Bytes:    size,
		})
	}

	return records
}
