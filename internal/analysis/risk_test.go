package analysis

import (
	"strings"
	"testing"

	"netforensic/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestScoreWarningOnly(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	hierarchy := strings.Join([]string{
		"===================================================================",
		"Protocol Hierarchy Statistics",
		"Filter:",
		"eth frames:10 bytes:1000",
		"  ip frames:10 bytes:1000",
		"    tcp frames:10 bytes:1000",
	}, "\n")
	got := s.Score("Warns (1)\n  Warning  Sequence  TCP  Previous segment not captured", hierarchy)

	assert.Equal(t, 20, got.Score)
	assert.Equal(t, models.RiskLow, got.Level)
	assert.Equal(t, []string{ReasonWarning}, got.Reasons)
}

func TestScoreLegacyAndNameResolution(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	got := s.Score("", "telnet frames:4 bytes:300\ndns frames:2 bytes:180\n")

	assert.Equal(t, 45, got.Score)
	assert.Equal(t, models.RiskMedium, got.Level)
	assert.Equal(t, []string{ReasonLegacy, ReasonNameResolution}, got.Reasons)
}

func TestScoreNameResolutionOnlyShortReports(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	got := s.Score("", "tcp frames:120 bytes:15000\ndns frames:5 bytes:400")
	assert.Equal(t, 15, got.Score)
	assert.Equal(t, []string{ReasonNameResolution}, got.Reasons)

	long := "a\nb\nc\nd\ndns frames:5 bytes:400"
	got = s.Score("", long)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, []string{ReasonNone}, got.Reasons)
}

func TestScoreCriticalExcludesWarning(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	got := s.Score("Errors (2)\nWarnings (5)", "")
	assert.Equal(t, 40, got.Score)
	assert.Equal(t, models.RiskMedium, got.Level)
	assert.Equal(t, []string{ReasonCritical}, got.Reasons)
}

func TestScoreHigh(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	got := s.Score("Errors (1)\n  Malformed  TCP  Malformed Packet", "irc frames:9 bytes:900\ndns frames:1 bytes:80")
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, models.RiskHigh, got.Level)
	assert.Equal(t, []string{ReasonCritical, ReasonLegacy, ReasonNameResolution}, got.Reasons)
}

func TestScoreClampsAt100(t *testing.T) {
	cfg := DefaultRiskConfig()
	s := NewScorer(cfg)
	// inflate the table to force the sum past the cap
	s.rules = append(s.rules, rule{source: sourceExpert, markers: []string{"error"}, points: 90, reason: "extra"})

	got := s.Score("Error", "telnet frames:1 bytes:1")
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, models.RiskHigh, got.Level)
}

func TestScoreNoAnomalies(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	got := s.Score("", "")
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, models.RiskLow, got.Level)
	assert.Equal(t, []string{ReasonNone}, got.Reasons)
}

func TestScoreCaseSensitivity(t *testing.T) {
	insensitive := NewScorer(DefaultRiskConfig())
	assert.Equal(t, 40, insensitive.Score("ERRORS (1)", "").Score)
	assert.Equal(t, 30, insensitive.Score("", "TELNET frames:1 bytes:1\na\nb\nc\nd\ne").Score)

	cfg := DefaultRiskConfig()
	cfg.CaseSensitive = true
	sensitive := NewScorer(cfg)
	assert.Equal(t, 0, sensitive.Score("ERRORS (1)", "").Score)
	assert.Equal(t, 40, sensitive.Score("Errors (1)", "").Score)
}

func TestScoreCustomMarkers(t *testing.T) {
	cfg := DefaultRiskConfig()
	cfg.LegacyMarkers = []string{"ftp", ""}
	s := NewScorer(cfg)

	assert.Equal(t, 0, s.Score("", "telnet\n1\n2\n3\n4\n5").Score)
	assert.Equal(t, 30, s.Score("", "ftp\n1\n2\n3\n4\n5").Score)
}

func TestScoreIgnoresErrorWordOutsideErrorGroup(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())

	notes := strings.Join([]string{
		"Notes (1)",
		"=============",
		"   Frequency      Group           Protocol  Summary",
		"           1     Sequence          TCP  connection error recovered",
		"Chats (1)",
		"           1     Sequence         HTTP  HTTP/1.1 500 Internal Server Error",
	}, "\n")
	got := s.Score(notes, "")
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, []string{ReasonNone}, got.Reasons)
}

func TestScoreNameResolutionZeroLineLimit(t *testing.T) {
	cfg := DefaultRiskConfig()
	cfg.NameResolutionMaxLines = 0
	s := NewScorer(cfg)

	short := s.Score("", "dns frames:5 bytes:400")
	assert.Equal(t, 0, short.Score)

	long := strings.Repeat("udp frames:1 bytes:60\n", 6) + "dns frames:5 bytes:400"
	assert.Equal(t, 0, s.Score("", long).Score)
}

func TestLevelForScore(t *testing.T) {
	for score := 0; score <= 100; score++ {
		level := LevelForScore(score)
		switch {
		case score >= 70:
			assert.Equal(t, models.RiskHigh, level, score)
		case score >= 30:
			assert.Equal(t, models.RiskMedium, level, score)
		default:
			assert.Equal(t, models.RiskLow, level, score)
		}
	}
}

func TestScoreInvariants(t *testing.T) {
	s := NewScorer(DefaultRiskConfig())
	experts := []string{"", "Warning", "Errors (1)", "Errors (1) Warning", "note"}
	hierarchies := []string{"", "dns", "telnet", "irc\ndns", "tcp\nudp\nhttp\ntls\nquic\ndns"}

	for _, e := range experts {
		for _, h := range hierarchies {
			got := s.Score(e, h)
			assert.GreaterOrEqual(t, got.Score, 0)
			assert.LessOrEqual(t, got.Score, 100)
			assert.Equal(t, LevelForScore(got.Score), got.Level)
			assert.NotEmpty(t, got.Reasons)
			assert.Equal(t, got, s.Score(e, h))
		}
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 0, countLines("\n"))
	assert.Equal(t, 1, countLines("one"))
	assert.Equal(t, 2, countLines("one\ntwo\n"))
	assert.Equal(t, 3, countLines("one\r\n\r\nthree"))
}
