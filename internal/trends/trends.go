package trends

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Source identifier for the authoritative legislative adapter. Feed adapters
// use an "rss:" prefix and social adapters a "social:" prefix so scoring can
// classify provenance.
const (
	SourceCongress     = "congress_gov"
	SourceFeedPrefix   = "rss:"
	SourceSocialPrefix = "social:"
)

// crossSourceBoost rewards topics confirmed by more than one source.
const crossSourceBoost = 1.5

// BoostMode selects how the cross-source multiplier is applied.
type BoostMode int

const (
	// BoostAdditive applies the multiplier once to the summed volume of any
	// multi-source topic. Order of merging does not matter.
	BoostAdditive BoostMode = iota
	// BoostLegacy re-applies the multiplier to the entire accumulated total
	// on every merge, compounding with each additional source. Later merges
	// compound on already-boosted totals, so insertion order matters. Kept
	// for compatibility; pinned by test.
	BoostLegacy
)

// ParseBoostMode maps a config string to a BoostMode. Empty selects additive.
func ParseBoostMode(s string) (BoostMode, error) {
	switch s {
	case "", "additive":
		return BoostAdditive, nil
	case "legacy":
		return BoostLegacy, nil
	}
	return BoostAdditive, fmt.Errorf("unknown boost mode %q", s)
}

// Signal is one raw trend observation from a source adapter.
type Signal struct {
	Topic    string
	Source   string
	Volume   int
	Metadata map[string]string
}

// Aggregated is one merged trend keyed by normalized topic.
type Aggregated struct {
	Topic           string
	Sources         []string
	Volume          int
	RelevanceWeight float64
	Metadata        map[string]string
}

// Normalize reduces a topic to its identity key: lowercase, leading hashtag
// markers stripped, surrounding whitespace removed. Normalizing an already
// normalized key is a no-op.
func Normalize(topic string) string {
	s := strings.TrimSpace(strings.ToLower(topic))
	for strings.HasPrefix(s, "#") {
		s = s[1:]
	}
	return strings.TrimSpace(s)
}

// Aggregate merges raw signals into one record per normalized topic, sorted
// by accumulated volume descending.
func Aggregate(signals []Signal, mode BoostMode) []Aggregated {
	type record struct {
		agg   *Aggregated
		total float64 // running total under legacy compounding
		raw   int     // plain sum under additive boosting
	}

	byKey := make(map[string]*record)
	var order []string

	for _, sig := range signals {
		key := Normalize(sig.Topic)
		if key == "" {
			continue
		}

		rec, ok := byKey[key]
		if !ok {
			weight := 0.5
			if sig.Source == SourceCongress {
				weight = 1.0
			}
			rec = &record{
				agg: &Aggregated{
					Topic:           key,
					Sources:         []string{sig.Source},
					RelevanceWeight: weight,
					Metadata:        sig.Metadata,
				},
				total: float64(sig.Volume),
				raw:   sig.Volume,
			}
			byKey[key] = rec
			order = append(order, key)
			continue
		}

		if !containsSource(rec.agg.Sources, sig.Source) {
			rec.agg.Sources = append(rec.agg.Sources, sig.Source)
		}
		rec.raw += sig.Volume
		rec.total = (rec.total + float64(sig.Volume)) * crossSourceBoost
		if rec.agg.RelevanceWeight < 1.0 && sig.Source == SourceCongress {
			rec.agg.RelevanceWeight = 1.0
		}
		if rec.agg.Metadata == nil {
			rec.agg.Metadata = sig.Metadata
		}
	}

	result := make([]Aggregated, 0, len(order))
	for _, key := range order {
		rec := byKey[key]
		switch mode {
		case BoostLegacy:
			rec.agg.Volume = int(math.Round(rec.total))
		default:
			v := float64(rec.raw)
			if len(rec.agg.Sources) > 1 {
				v *= crossSourceBoost
			}
			rec.agg.Volume = int(math.Round(v))
		}
		result = append(result, *rec.agg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Volume > result[j].Volume
	})
	return result
}

func containsSource(sources []string, s string) bool {
	for _, have := range sources {
		if have == s {
			return true
		}
	}
	return false
}
