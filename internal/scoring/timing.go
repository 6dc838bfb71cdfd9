package scoring

import "time"

const timingBase = 50

// PeakWindow is the configured daily window of peak audience activity,
// expressed as inclusive start / exclusive end hours.
type PeakWindow struct {
	StartHour int
	EndHour   int
}

// Contains reports whether hour falls inside the window.
func (w PeakWindow) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// Timing scores how good a moment t is for publishing, in [0,100].
// sessionActive reflects the legislative-session status feed; when the feed
// could not be read the caller passes false and the score is unaffected.
func Timing(t time.Time, peak PeakWindow, sessionActive bool) int {
	score := timingBase
	hour := t.Hour()

	if peak.Contains(hour) {
		score += 20
	} else {
		score -= 20
	}

	// Sub-window bonuses stack on top of the peak adjustment.
	if hour >= 9 && hour < 11 {
		score += 10
	}
	if hour >= 19 && hour < 21 {
		score += 10
	}

	switch t.Weekday() {
	case time.Tuesday, time.Wednesday, time.Thursday:
		score += 20
	case time.Monday, time.Friday:
		score += 10
	}

	if sessionActive {
		score += 15
	}

	return clamp(score)
}
