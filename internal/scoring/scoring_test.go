package scoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/porkreport/porkbot/internal/trends"
)

var testKeywords = Keywords{
	High:   []string{"spending", "pork", "earmark"},
	Medium: []string{"budget", "committee"},
}

func TestRelevanceBase(t *testing.T) {
	trend := trends.Aggregated{Topic: "weather", Sources: []string{"social:x"}}
	// base 30 + social 5
	if got := Relevance(trend, testKeywords); got != 35 {
		t.Errorf("expected 35, got %d", got)
	}
}

func TestRelevanceHighKeywordWinsOverMedium(t *testing.T) {
	trend := trends.Aggregated{Topic: "committee spending", Sources: []string{"social:x"}}
	// base 30 + high 20 + social 5; medium must not stack
	if got := Relevance(trend, testKeywords); got != 55 {
		t.Errorf("expected 55, got %d", got)
	}
}

func TestRelevanceSourceBonuses(t *testing.T) {
	trend := trends.Aggregated{
		Topic:   "farm bill",
		Sources: []string{trends.SourceCongress, "rss:thehill", "social:x"},
	}
	// base 30 + authoritative 25 + syndicated 10 + social 5 + multi-source 15
	if got := Relevance(trend, testKeywords); got != 85 {
		t.Errorf("expected 85, got %d", got)
	}
}

func TestRelevanceClampedTo100(t *testing.T) {
	trend := trends.Aggregated{
		Topic:   "pork spending",
		Sources: []string{trends.SourceCongress, "rss:thehill", "social:x"},
	}
	if got := Relevance(trend, testKeywords); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
}

func TestEngagementCurrencyAndHashtag(t *testing.T) {
	text := "Congress spends $50,000 on a committee to study spending committees, again #PorkReport"
	// base 50 + currency 10 + one hashtag 5 (86 chars: no length adjustment)
	if got := Engagement(text); got != 65 {
		t.Errorf("expected 65, got %d", got)
	}
}

func TestEngagementShortTextPenalty(t *testing.T) {
	if got := Engagement("Short."); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
}

func TestEngagementBonuses(t *testing.T) {
	text := "BREAKING: Guess what Congress did? They spent $2,000,000 (up 40%) on studies about studies. Details: https://example.gov #PorkReport #Congress"
	// base 50 + sweet spot 10 + question 5 + currency 10 + percent 5 +
	// opener 10 + two hashtags 5 + url 5 = 100
	if got := Engagement(text); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestEngagementHashtagSpamPenalty(t *testing.T) {
	text := "Congress wastes money once more, believe it or not #a #b #c #d"
	// base 50 + >3 hashtags -10 = 40
	if got := Engagement(text); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
}

func TestEngagementDeterministic(t *testing.T) {
	text := "Congress spends $50,000 on a committee #PorkReport"
	first := Engagement(text)
	for i := 0; i < 5; i++ {
		if Engagement(text) != first {
			t.Fatal("engagement score must be deterministic")
		}
	}
}

func TestTimingPeakWindow(t *testing.T) {
	peak := PeakWindow{StartHour: 12, EndHour: 15}
	// Tuesday 13:00, inside peak: base 50 + peak 20 + midweek 20
	inside := time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC)
	if got := Timing(inside, peak, false); got != 90 {
		t.Errorf("expected 90 inside peak, got %d", got)
	}
	// Tuesday 03:00, outside peak: base 50 - 20 + midweek 20
	outside := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	if got := Timing(outside, peak, false); got != 50 {
		t.Errorf("expected 50 outside peak, got %d", got)
	}
}

func TestTimingSessionBonus(t *testing.T) {
	peak := PeakWindow{StartHour: 9, EndHour: 17}
	at := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC) // Saturday
	base := Timing(at, peak, false)
	if got := Timing(at, peak, true); got != base+15 {
		t.Errorf("expected session bonus of 15, got %d vs %d", got, base)
	}
}

func TestTimingSubWindows(t *testing.T) {
	peak := PeakWindow{StartHour: 9, EndHour: 21}
	// Saturday mid-morning: base 50 + peak 20 + mid-morning 10
	morning := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got := Timing(morning, peak, false); got != 80 {
		t.Errorf("expected 80 mid-morning, got %d", got)
	}
	// Saturday evening: base 50 + peak 20 + evening 10
	evening := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
	if got := Timing(evening, peak, false); got != 80 {
		t.Errorf("expected 80 evening, got %d", got)
	}
}

func TestTimingClamped(t *testing.T) {
	peak := PeakWindow{StartHour: 0, EndHour: 24}
	// Wednesday mid-morning in session: 50+20+10+20+15 = 115 -> 100
	at := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	if got := Timing(at, peak, true); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
}

func TestComposite(t *testing.T) {
	// 80*0.40 + 60*0.35 + 40*0.25 = 63
	if got := Composite(80, 60, 40); got != 63 {
		t.Errorf("expected 63, got %d", got)
	}
}

func TestCompositeRounds(t *testing.T) {
	// 55*0.40 + 55*0.35 + 55*0.25 = 55
	if got := Composite(55, 55, 55); got != 55 {
		t.Errorf("expected 55, got %d", got)
	}
}

func TestTrendPriority(t *testing.T) {
	// 80*0.50 + 60*0.30 + min(50000/10000, 20)*0.20 = 40 + 18 + 1 = 59
	if got := TrendPriority(80, 60, 50000); got != 59 {
		t.Errorf("expected 59, got %d", got)
	}
}

func TestTrendPriorityVolumeBoostCapped(t *testing.T) {
	capped := TrendPriority(50, 50, 200000)
	uncapped := TrendPriority(50, 50, 5000000)
	if capped != uncapped {
		t.Errorf("volume boost must cap at 20: %d vs %d", capped, uncapped)
	}
}

func TestSessionFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"house":{"in_session":true},"senate":{"in_session":false}}`))
	}))
	defer srv.Close()

	status := NewSessionFeed(srv.URL).Fetch(context.Background())
	if !status.Known {
		t.Fatal("expected status to be known")
	}
	if !status.Active() {
		t.Error("expected active session with house in session")
	}
}

func TestSessionFeedFailureIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	status := NewSessionFeed(srv.URL).Fetch(context.Background())
	if status.Known {
		t.Error("expected unknown status on feed failure")
	}
	if status.Active() {
		t.Error("unknown status must not count as active")
	}
}

func TestSessionFeedDisabled(t *testing.T) {
	status := NewSessionFeed("").Fetch(context.Background())
	if status.Known {
		t.Error("expected unknown status when feed is disabled")
	}
}
