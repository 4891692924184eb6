package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"netforensic/internal/logging"
	"netforensic/internal/models"
	"netforensic/internal/tshark"
)

// Dissector produces the three raw tshark reports for a capture.
type Dissector interface {
	Dissect(ctx context.Context, capturePath string) (tshark.Reports, error)
}

// Analyzer runs the per-capture pipeline: dissect, parse, score.
type Analyzer struct {
	dissector Dissector
	scorer    atomic.Pointer[Scorer]
	logger    *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil scorer uses DefaultRiskConfig.
func NewAnalyzer(d Dissector, scorer *Scorer, logger *slog.Logger) *Analyzer {
	if scorer == nil {
		scorer = NewScorer(DefaultRiskConfig())
	}
	a := &Analyzer{
		dissector: d,
		logger:    logging.Component(logger, "analysis"),
	}
	a.scorer.Store(scorer)
	return a
}

// SetScorer swaps the rule set used by subsequent analyses.
func (a *Analyzer) SetScorer(s *Scorer) {
	if s != nil {
		a.scorer.Store(s)
	}
}

// Analyze dissects the session's capture and builds its result. Dissection
// failures are wrapped with %w so callers can still reach the
// *tshark.InvocationError. Parsing never fails; an unrecognized report just
// yields no records.
func (a *Analyzer) Analyze(ctx context.Context, session *models.CaptureSession) (*models.AnalysisResult, error) {
	start := time.Now()

	reports, err := a.dissector.Dissect(ctx, session.Path)
	if err != nil {
		return nil, fmt.Errorf("dissect %s: %w", session.Filename, err)
	}

	result := a.Build(session, reports)
	a.logger.Info("capture analyzed",
		"session", session.ID,
		"file", session.Filename,
		"protocols", len(result.Protocols),
		"talkers", len(result.TopTalkers),
		"score", result.Risk.Score,
		"level", string(result.Risk.Level),
		"elapsed", time.Since(start))
	return result, nil
}

// Build turns raw reports into an AnalysisResult without running tshark.
func (a *Analyzer) Build(session *models.CaptureSession, reports tshark.Reports) *models.AnalysisResult {
	return &models.AnalysisResult{
		SessionID:         session.ID,
		Filename:          session.Filename,
		StoredName:        session.StoredName,
		FilePath:          session.Path,
		Digest:            session.Digest,
		LinkType:          session.LinkType,
		ProtocolHierarchy: reports.Hierarchy,
		ExpertInfo:        reports.Expert,
		ConversationStats: reports.Conversations,
		Protocols:         ParseHierarchy(reports.Hierarchy),
		TopTalkers:        ParseConversations(reports.Conversations),
		Risk:              a.scorer.Load().Score(reports.Expert, reports.Hierarchy),
		Status:            "success",
	}
}
