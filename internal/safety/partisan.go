package safety

import (
	"context"
	"fmt"
	"math"
)

const partisanCap = 25

// LeanClassifier estimates partisan lean of a text in [-1.0, +1.0], where 0
// is balanced. Implementations are external services.
type LeanClassifier interface {
	Lean(ctx context.Context, text string) (float64, error)
}

// checkPartisan implements the partisan-balance layer. A classifier failure
// must not abort the pipeline: the layer degrades to a neutral lean of 0 and
// the failure is recorded in the notes.
func checkPartisan(ctx context.Context, classifier LeanClassifier, content string) LayerResult {
	result := LayerResult{Name: LayerPartisan}
	if classifier == nil {
		return result
	}

	lean, err := classifier.Lean(ctx, content)
	if err != nil {
		result.Notes = append(result.Notes, fmt.Sprintf("classifier failed, defaulting to neutral: %v", err))
		return result
	}

	if lean > 1.0 {
		lean = 1.0
	} else if lean < -1.0 {
		lean = -1.0
	}
	result.Score = int(math.Round(math.Abs(lean) * partisanCap))
	if result.Score > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("lean %+.2f", lean))
	}
	return result
}
