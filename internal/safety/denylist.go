package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// denylistPenalty is large enough to force a REJECT under any valid
// threshold configuration.
const denylistPenalty = 100

// Denylist matches content against configured keywords (exact substring)
// and regex patterns. Any match is binary: the fixed penalty applies and
// the layer stops scoring further matches.
type Denylist struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewDenylist compiles the configured patterns. A malformed pattern is a
// configuration error and fails immediately.
func NewDenylist(keywords, patterns []string) (*Denylist, error) {
	d := &Denylist{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" {
			d.keywords = append(d.keywords, kw)
		}
	}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling denylist pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// Check implements the denylist layer.
func (d *Denylist) Check(content string) LayerResult {
	result := LayerResult{Name: LayerDenylist}
	lower := strings.ToLower(content)

	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			result.Score = denylistPenalty
			result.Notes = append(result.Notes, fmt.Sprintf("denylist keyword %q", kw))
			return result
		}
	}
	for _, re := range d.patterns {
		if re.MatchString(content) {
			result.Score = denylistPenalty
			result.Notes = append(result.Notes, fmt.Sprintf("denylist pattern %q", re.String()))
			return result
		}
	}
	return result
}
