package safety

import (
	"context"
	"fmt"
	"log"

	"github.com/porkreport/porkbot/internal/database"
)

// Verdict is the terminal outcome of one safety evaluation.
type Verdict string

const (
	VerdictAllow  Verdict = "ALLOW"
	VerdictReview Verdict = "REVIEW"
	VerdictReject Verdict = "REJECT"
)

// Layer names as recorded in the safety log breakdown.
const (
	LayerDenylist = "denylist"
	LayerContent  = "content"
	LayerCrisis   = "crisis"
	LayerPartisan = "partisan"
)

// MaxScore is the sum of all per-layer caps, the highest total a piece of
// content can score.
const MaxScore = denylistPenalty + contentFilterCap + crisisCap + partisanCap

// Thresholds are the configured verdict boundaries: score < Low is ALLOW,
// Low <= score < High is REVIEW, score >= High is REJECT.
type Thresholds struct {
	Low  int
	High int
}

// Validate checks the threshold ordering and range. High is capped at the
// denylist penalty so a denylist hit always lands in REJECT.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > denylistPenalty || t.Low >= t.High {
		return fmt.Errorf("safety thresholds must satisfy 0 <= low < high <= %d, got low=%d high=%d",
			denylistPenalty, t.Low, t.High)
	}
	return nil
}

// Verdict maps a total score to its terminal outcome.
func (t Thresholds) Verdict(score int) Verdict {
	switch {
	case score < t.Low:
		return VerdictAllow
	case score < t.High:
		return VerdictReview
	default:
		return VerdictReject
	}
}

// LayerResult is one layer's independent contribution to an evaluation.
type LayerResult struct {
	Name  string
	Score int
	Notes []string
}

// Evaluation is the complete result of running all layers on one piece of
// content.
type Evaluation struct {
	Content string
	Layers  []LayerResult
	Total   int
	Verdict Verdict
}

// Breakdown returns the per-layer scores as a keyed mapping.
func (e *Evaluation) Breakdown() map[string]int {
	m := make(map[string]int, len(e.Layers))
	for _, l := range e.Layers {
		m[l.Name] = l.Score
	}
	return m
}

// Pipeline runs every safety layer and combines their scores into a verdict.
// All layers always run; an early high score never skips later layers, so
// the full breakdown is available for audit on every evaluation.
type Pipeline struct {
	db         *database.DB
	denylist   *Denylist
	classifier LeanClassifier
	thresholds Thresholds
}

// NewPipeline assembles the safety pipeline. The thresholds and denylist
// configuration must already be validated.
func NewPipeline(db *database.DB, denylist *Denylist, classifier LeanClassifier, thresholds Thresholds) *Pipeline {
	return &Pipeline{
		db:         db,
		denylist:   denylist,
		classifier: classifier,
		thresholds: thresholds,
	}
}

// Evaluate runs all layers on content and appends the result to the safety
// log. recentTopics feeds the crisis radar. The evaluation is returned even
// when the log append fails; the error reports the persistence failure.
func (p *Pipeline) Evaluate(ctx context.Context, content string, recentTopics []string) (*Evaluation, error) {
	eval := &Evaluation{Content: content}

	eval.Layers = append(eval.Layers, p.denylist.Check(content))
	eval.Layers = append(eval.Layers, checkContent(content))
	eval.Layers = append(eval.Layers, checkCrisis(content, recentTopics))
	eval.Layers = append(eval.Layers, checkPartisan(ctx, p.classifier, content))

	for _, layer := range eval.Layers {
		eval.Total += layer.Score
		for _, note := range layer.Notes {
			log.Printf("Safety [%s]: %s", layer.Name, note)
		}
	}
	eval.Verdict = p.thresholds.Verdict(eval.Total)

	if p.db != nil {
		if err := p.db.InsertSafetyEntry(content, eval.Total, string(eval.Verdict), eval.Breakdown()); err != nil {
			return eval, fmt.Errorf("appending safety log: %w", err)
		}
	}
	return eval, nil
}
