package analysis

import (
	"strings"

	"netforensic/internal/models"
)

// Reasons reported by the scorer.
const (
	ReasonCritical       = "critical diagnostic errors detected (possible malformed packets / attack)"
	ReasonWarning        = "diagnostic warnings found in traffic stream"
	ReasonLegacy         = "insecure/legacy protocol observed"
	ReasonNameResolution = "anomalous name-resolution-only traffic pattern (possible command-and-control or exfiltration)"
	ReasonNone           = "no significant anomalies detected"
)

const (
	pointsCritical       = 40
	pointsWarning        = 20
	pointsLegacy         = 30
	pointsNameResolution = 15

	maxScore        = 100
	highThreshold   = 70
	mediumThreshold = 30
)

// RiskConfig holds the markers the scorer looks for. Markers are plain
// substrings; empty markers are ignored.
type RiskConfig struct {
	CriticalMarkers       []string `toml:"critical_markers" yaml:"critical_markers" json:"critical_markers"`
	WarningMarkers        []string `toml:"warning_markers" yaml:"warning_markers" json:"warning_markers"`
	LegacyMarkers         []string `toml:"legacy_markers" yaml:"legacy_markers" json:"legacy_markers"`
	NameResolutionMarkers []string `toml:"name_resolution_markers" yaml:"name_resolution_markers" json:"name_resolution_markers"`

	// NameResolutionMaxLines: the name-resolution rule only fires when the
	// hierarchy report has fewer lines than this. It must be at least 1;
	// with 0 the rule can never fire.
	NameResolutionMaxLines int `toml:"name_resolution_max_lines" yaml:"name_resolution_max_lines" json:"name_resolution_max_lines"`

	CaseSensitive bool `toml:"case_sensitive" yaml:"case_sensitive" json:"case_sensitive"`
}

// DefaultRiskConfig returns the default rule markers.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		CriticalMarkers:        []string{"Errors ("},
		WarningMarkers:         []string{"Warning"},
		LegacyMarkers:          []string{"telnet", "irc"},
		NameResolutionMarkers:  []string{"dns"},
		NameResolutionMaxLines: 5,
		CaseSensitive:          false,
	}
}

type source int

const (
	sourceExpert source = iota
	sourceHierarchy
)

type rule struct {
	source  source
	markers []string
	points  int
	reason  string

	// group: only the first matching rule of a non-empty group counts.
	group string

	// lineLimited: the source must have fewer than maxLines lines.
	lineLimited bool
	maxLines    int
}

// Scorer assigns a risk score to a capture from its expert and hierarchy
// reports. It holds no state between calls and is safe for concurrent use.
type Scorer struct {
	rules         []rule
	caseSensitive bool
}

// NewScorer builds the rule table from cfg. Evaluation order is fixed:
// expert severity (critical, else warning), legacy protocols, then
// name-resolution-only traffic.
func NewScorer(cfg RiskConfig) *Scorer {
	s := &Scorer{caseSensitive: cfg.CaseSensitive}
	norm := func(markers []string) []string {
		out := make([]string, 0, len(markers))
		for _, m := range markers {
			if m == "" {
				continue
			}
			if !cfg.CaseSensitive {
				m = strings.ToLower(m)
			}
			out = append(out, m)
		}
		return out
	}

	s.rules = []rule{
		{source: sourceExpert, markers: norm(cfg.CriticalMarkers), points: pointsCritical, reason: ReasonCritical, group: "expert"},
		{source: sourceExpert, markers: norm(cfg.WarningMarkers), points: pointsWarning, reason: ReasonWarning, group: "expert"},
		{source: sourceHierarchy, markers: norm(cfg.LegacyMarkers), points: pointsLegacy, reason: ReasonLegacy},
		{source: sourceHierarchy, markers: norm(cfg.NameResolutionMarkers), points: pointsNameResolution, reason: ReasonNameResolution, lineLimited: true, maxLines: cfg.NameResolutionMaxLines},
	}
	return s
}

// Score evaluates every rule once, in order, and returns the assessment.
func (s *Scorer) Score(expert, hierarchy string) models.RiskAssessment {
	texts := map[source]string{
		sourceExpert:    expert,
		sourceHierarchy: hierarchy,
	}
	lines := map[source]int{
		sourceExpert:    countLines(expert),
		sourceHierarchy: countLines(hierarchy),
	}
	if !s.caseSensitive {
		for k, v := range texts {
			texts[k] = strings.ToLower(v)
		}
	}

	score := 0
	reasons := make([]string, 0, len(s.rules))
	fired := make(map[string]bool)

	for _, r := range s.rules {
		if r.group != "" && fired[r.group] {
			continue
		}
		if r.lineLimited && lines[r.source] >= r.maxLines {
			continue
		}
		if !containsAny(texts[r.source], r.markers) {
			continue
		}

		score += r.points
		reasons = append(reasons, r.reason)
		if r.group != "" {
			fired[r.group] = true
		}
	}

	if score > maxScore {
		score = maxScore
	}
	if len(reasons) == 0 {
		reasons = append(reasons, ReasonNone)
	}

	return models.RiskAssessment{
		Score:   score,
		Level:   LevelForScore(score),
		Reasons: reasons,
	}
}

// LevelForScore maps a score to its severity: High at 70 and above,
// Medium at 30 and above, otherwise Low.
func LevelForScore(score int) models.RiskLevel {
	switch {
	case score >= highThreshold:
		return models.RiskHigh
	case score >= mediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// countLines counts lines the way a reader would: a trailing newline does
// not start a new line, and empty text has none.
func countLines(text string) int {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
