package analysis

import (
	"net/netip"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"netforensic/internal/models"
)

// MaxTopTalkers caps the conversation records kept from one report.
const MaxTopTalkers = 10

// A conversation line: "10.0.0.1 <-> 10.0.0.2   12  3400   20  5000 ..."
// i.e. address A, address B, packets and bytes in one direction, then the
// total packets and total bytes for the pair. Trailing columns are ignored.
var conversationLine = regexp.MustCompile(
	`(\d+\.\d+\.\d+\.\d+)\s+<->\s+(\d+\.\d+\.\d+\.\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`)

// ParseConversations extracts host pairs from `tshark -z conv,ip` output,
// sorted by total bytes (largest first) and capped at MaxTopTalkers.
// Pairs with equal totals keep their report order.
func ParseConversations(text string) []models.ConversationRecord {
	var records []models.ConversationRecord

	for _, line := range strings.Split(text, "\n") {
		m := conversationLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !isIPv4(m[1]) || !isIPv4(m[2]) {
			continue
		}

		var nums [4]int64
		ok := true
		for i := range nums {
			n, err := strconv.ParseInt(m[3+i], 10, 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = n
		}
		if !ok {
			continue
		}

		records = append(records, models.ConversationRecord{
			Src:          m[1],
			Dst:          m[2],
			Packets:      nums[0],
			Bytes:        nums[1],
			TotalPackets: nums[2],
			TotalBytes:   nums[3],
		})
	}

	// Sort descending by total bytes
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TotalBytes > records[j].TotalBytes
	})

	if len(records) > MaxTopTalkers {
		return records[:MaxTopTalkers]
	}
	if records == nil {
		return []models.ConversationRecord{}
	}
	return records
}

func isIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}
