package safety

import (
	"regexp"
	"strings"
)

const contentFilterCap = 20

var (
	ssnRe     = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phoneRe   = regexp.MustCompile(`\b(\+1[\s.-]?)?(\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	emailRe   = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	addressRe = regexp.MustCompile(`(?i)\b\d{1,5}\s+\w+(\s\w+)?\s+(street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|court|ct)\b`)
)

var profanityWords = []string{
	"damn", "hell no", "bullshit", "crap", "bastard",
}

var threatWords = []string{
	"kill", "destroy them", "take them out", "make them pay", "hunt down",
	"burn it down",
}

var unverifiedPhrases = []string{
	"sources say", "allegedly", "rumor has it", "i heard that",
	"people are saying", "reportedly",
}

// checkContent implements the PII / profanity / threat / unverified-claim
// layer. PII hits are scored independently and summed; the other sub-checks
// score once regardless of match count. The layer total is capped.
func checkContent(content string) LayerResult {
	result := LayerResult{Name: LayerContent}
	lower := strings.ToLower(content)

	pii := 0
	if ssnRe.MatchString(content) {
		pii += 10
		result.Notes = append(result.Notes, "SSN-shaped pattern")
	}
	if phoneRe.MatchString(content) {
		pii += 8
		result.Notes = append(result.Notes, "phone-shaped pattern")
	}
	if emailRe.MatchString(content) {
		pii += 8
		result.Notes = append(result.Notes, "email address")
	}
	if addressRe.MatchString(content) {
		pii += 8
		result.Notes = append(result.Notes, "street-address-shaped pattern")
	}
	result.Score += pii

	if containsAny(lower, profanityWords) {
		result.Score += 5
		result.Notes = append(result.Notes, "profanity")
	}
	if containsAny(lower, threatWords) {
		result.Score += 10
		result.Notes = append(result.Notes, "threat-adjacent language")
	}
	if containsAny(lower, unverifiedPhrases) {
		result.Score += 5
		result.Notes = append(result.Notes, "unverified-claim phrasing")
	}

	if result.Score > contentFilterCap {
		result.Score = contentFilterCap
	}
	return result
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
