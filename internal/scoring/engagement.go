package scoring

import (
	"regexp"
	"strings"
)

const engagementBase = 50

var (
	currencyRe = regexp.MustCompile(`\$[\d,]+(\.\d+)?`)
	percentRe  = regexp.MustCompile(`\d+(\.\d+)?%`)
	hashtagRe  = regexp.MustCompile(`#\w+`)
	urlRe      = regexp.MustCompile(`https?://\S+`)
	openerRe   = regexp.MustCompile(`(?i)^(breaking|alert|just in|new|congress just|your tax dollars|guess (what|how much))`)
)

// Engagement predicts how well a piece of content will perform, in [0,100].
// It only looks at the text itself, so it can run the moment content exists.
func Engagement(text string) int {
	score := engagementBase

	n := len(text)
	switch {
	case n >= 100 && n <= 200:
		score += 10
	case n < 50 || n > 270:
		score -= 10
	}

	if strings.Contains(text, "?") {
		score += 5
	}
	if currencyRe.MatchString(text) {
		score += 10
	}
	if percentRe.MatchString(text) {
		score += 5
	}
	if openerRe.MatchString(text) {
		score += 10
	}

	switch tags := len(hashtagRe.FindAllString(text, -1)); {
	case tags == 1 || tags == 2:
		score += 5
	case tags > 3:
		score -= 10
	}

	if urlRe.MatchString(text) {
		score += 5
	}

	return clamp(score)
}
