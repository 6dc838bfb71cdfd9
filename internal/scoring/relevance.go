package scoring

import (
	"strings"

	"github.com/porkreport/porkbot/internal/trends"
)

const relevanceBase = 30

// Keywords holds the domain keyword lists used for relevance scoring.
type Keywords struct {
	High   []string
	Medium []string
}

// Relevance scores how on-mission a trend is, in [0,100]. Keyword bonuses do
// not stack: the first high-priority hit wins; a medium hit only counts when
// no high-priority keyword matched.
func Relevance(t trends.Aggregated, kw Keywords) int {
	score := relevanceBase
	topic := strings.ToLower(t.Topic)

	if matchesAny(topic, kw.High) {
		score += 20
	} else if matchesAny(topic, kw.Medium) {
		score += 10
	}

	var authoritative, syndicated, social bool
	for _, src := range t.Sources {
		switch {
		case src == trends.SourceCongress:
			authoritative = true
		case strings.HasPrefix(src, trends.SourceFeedPrefix):
			syndicated = true
		case strings.HasPrefix(src, trends.SourceSocialPrefix):
			social = true
		}
	}
	if authoritative {
		score += 25
	}
	if syndicated {
		score += 10
	}
	if social {
		score += 5
	}

	if len(t.Sources) > 1 {
		score += 15
	}

	return clamp(score)
}

func matchesAny(topic string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(topic, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
