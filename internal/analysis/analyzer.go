// Package analysis runs a stabilized ratio set through scoring, matching and
// persistence, and manages server-side capture sessions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/kozaktomas/faceratio/internal/matcher"
	"github.com/kozaktomas/faceratio/internal/scoring"
)

// ErrInvalidRatios is returned for ratio sets that are not strictly positive
// or whose symmetry exceeds 1.
var ErrInvalidRatios = errors.New("ratios must be positive and symmetry at most 1")

// Result is the outcome of one completed analysis. MatchError and
// PersistError report optional steps that failed without voiding the score.
type Result struct {
	Ratios       geometry.RatioSet     `json:"ratios"`
	Scores       scoring.ScoreSet      `json:"scores"`
	FaceShape    scoring.FaceShape     `json:"faceShape"`
	Comparison   []scoring.Comparison  `json:"comparison"`
	Matches      []matcher.MatchResult `json:"matches"`
	ScanID       string                `json:"scanId,omitempty"`
	MatchError   string                `json:"match_error,omitempty"`
	PersistError string                `json:"persist_error,omitempty"`
}

// TopMatch returns the best match, or nil when there is none.
func (r *Result) TopMatch() *matcher.MatchResult {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// Analyzer wires the engine to the optional matcher and stores.
// Any of matcher, scans and stats may be nil; the matching step or the
// persistence step is then skipped.
type Analyzer struct {
	engine  *scoring.Engine
	matcher *matcher.Matcher
	scans   database.ScanWriter
	stats   database.StatsRecorder
	topK    int
	scanTTL time.Duration
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(engine *scoring.Engine, m *matcher.Matcher, scans database.ScanWriter, stats database.StatsRecorder) *Analyzer {
	return &Analyzer{engine: engine, matcher: m, scans: scans, stats: stats, topK: matcher.DefaultTopK}
}

// SetScanTTL overrides how long saved scans are kept. Zero leaves the
// store's default retention in place.
func (a *Analyzer) SetScanTTL(ttl time.Duration) {
	a.scanTTL = ttl
}

// stamp sets the expiry of scan from the configured retention.
func (a *Analyzer) stamp(scan *database.StoredScan) {
	if a.scanTTL <= 0 || !scan.ExpireAt.IsZero() {
		return
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}
	scan.ExpireAt = scan.CreatedAt.Add(a.scanTTL)
}

// Engine returns the scoring engine.
func (a *Analyzer) Engine() *scoring.Engine {
	return a.engine
}

// Complete stabilizes a session's window and analyzes the result.
// ErrInsufficientSamples is returned unchanged so callers can prompt the
// user to hold still; the session is left intact.
func (a *Analyzer) Complete(ctx context.Context, s *Session) (*Result, error) {
	ratios, err := s.Stabilize()
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, s.DeviceID, ratios)
}

// Analyze scores, classifies and matches ratios, then persists the scan for
// deviceID and records it in the global statistics. An empty deviceID skips
// the scan record but still counts towards statistics.
func (a *Analyzer) Analyze(ctx context.Context, deviceID string, ratios geometry.RatioSet) (*Result, error) {
	if !ratios.Valid() {
		return nil, ErrInvalidRatios
	}

	scores, shape, _ := a.engine.Evaluate(&ratios)
	res := &Result{
		Ratios:     ratios,
		Scores:     scores,
		FaceShape:  shape,
		Comparison: a.engine.Compare(ratios),
		Matches:    []matcher.MatchResult{},
	}

	// Matching runs alongside the statistics update. The scan record waits
	// for it because it stores the top match.
	matched := make(chan struct{})
	go func() {
		defer close(matched)
		if a.matcher == nil {
			return
		}
		matches, err := a.matcher.Match(ctx, matcher.Embed(ratios), a.topK)
		if err != nil {
			logger.Warning("similarity match failed", logger.LoggerOptions{Key: "error", Data: err})
			res.MatchError = err.Error()
			return
		}
		res.Matches = matches
	}()

	var persistErrs []error
	if _, err := a.RecordOutcome(ctx, scores.Total, shape); err != nil {
		persistErrs = append(persistErrs, err)
	}
	<-matched

	if a.scans != nil && deviceID != "" {
		scan := newStoredScan(deviceID, res)
		a.stamp(scan)
		if err := a.scans.SaveScan(ctx, scan); err != nil {
			persistErrs = append(persistErrs, fmt.Errorf("save scan: %w", err))
		} else {
			res.ScanID = scan.ID
		}
	}
	if err := errors.Join(persistErrs...); err != nil {
		logger.Error("persisting analysis failed", logger.LoggerOptions{Key: "error", Data: err})
		res.PersistError = err.Error()
	}

	return res, nil
}

// RecordOutcome folds one finished analysis into the global statistics.
// It is a no-op when no statistics store is configured.
func (a *Analyzer) RecordOutcome(ctx context.Context, total float64, shape scoring.FaceShape) (*database.GlobalStats, error) {
	if a.stats == nil {
		return nil, nil
	}
	stats, err := a.stats.RecordScan(ctx, total, string(shape))
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	return stats, nil
}

// SaveScan stores a client-computed scan and records it in the global
// statistics. Unlike Analyze, failures are returned because persisting is
// the whole point of the call.
func (a *Analyzer) SaveScan(ctx context.Context, scan *database.StoredScan) (*database.GlobalStats, error) {
	if a.scans == nil {
		return nil, errors.New("scan store not configured")
	}
	a.stamp(scan)
	if err := a.scans.SaveScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}
	return a.RecordOutcome(ctx, scan.TotalScore, scoring.FaceShape(scan.FaceShape))
}

func newStoredScan(deviceID string, res *Result) *database.StoredScan {
	scores := make(map[string]float64, len(res.Scores.Individual))
	for k, v := range res.Scores.Individual {
		scores[string(k)] = v
	}
	scan := &database.StoredScan{
		DeviceID:   deviceID,
		Ratios:     res.Ratios,
		Scores:     scores,
		TotalScore: res.Scores.Total,
		FaceShape:  string(res.FaceShape),
	}
	if top := res.TopMatch(); top != nil {
		scan.Match = &database.ScanMatch{
			ReferenceID: top.ReferenceID,
			Name:        top.Metadata.Name,
			Similarity:  top.Similarity,
			Description: top.Metadata.Description,
		}
	}
	return scan
}
