package safety

import (
	"fmt"
	"strings"
)

const (
	crisisCap          = 30
	crisisContentScore = 10
	crisisTrendScore   = 5
)

// crisisIndicators are phrases that suggest an active crisis or tragedy the
// operation must not post satire alongside.
var crisisIndicators = []string{
	"shooting", "mass casualty", "terror attack", "bombing", "explosion",
	"hostage", "hurricane", "earthquake", "wildfire", "flooding",
	"plane crash", "derailment", "pandemic", "state of emergency",
	"fatalities", "death toll",
}

// checkCrisis scans the content and recently observed trending topics for
// crisis indicators. Content matches weigh more than trend matches; the
// layer total is capped.
func checkCrisis(content string, recentTopics []string) LayerResult {
	result := LayerResult{Name: LayerCrisis}
	lower := strings.ToLower(content)

	for _, phrase := range crisisIndicators {
		if strings.Contains(lower, phrase) {
			result.Score += crisisContentScore
			result.Notes = append(result.Notes, fmt.Sprintf("content mentions %q", phrase))
		}
	}
	for _, topic := range recentTopics {
		topicLower := strings.ToLower(topic)
		for _, phrase := range crisisIndicators {
			if strings.Contains(topicLower, phrase) {
				result.Score += crisisTrendScore
				result.Notes = append(result.Notes, fmt.Sprintf("trending topic %q", topic))
				break
			}
		}
	}

	if result.Score > crisisCap {
		result.Score = crisisCap
	}
	return result
}
