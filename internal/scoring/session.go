package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// SessionStatus reflects the legislative-session status feed. Known is false
// when the feed was absent or unparseable; callers must treat that as
// "unknown", not as out-of-session.
type SessionStatus struct {
	House  bool
	Senate bool
	Known  bool
}

// Active reports whether either chamber is in session.
func (s SessionStatus) Active() bool {
	return s.Known && (s.House || s.Senate)
}

// SessionFeed reads the in-session status document.
type SessionFeed struct {
	url    string
	client *http.Client
}

// NewSessionFeed creates a session feed reader. An empty URL disables it.
func NewSessionFeed(url string) *SessionFeed {
	return &SessionFeed{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns the current session status. Any failure yields an unknown
// status and a nil error; the feed is advisory only.
func (f *SessionFeed) Fetch(ctx context.Context) SessionStatus {
	if f.url == "" {
		return SessionStatus{}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", f.url, nil)
	if err != nil {
		return SessionStatus{}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return SessionStatus{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SessionStatus{}
	}

	var doc struct {
		House struct {
			InSession bool `json:"in_session"`
		} `json:"house"`
		Senate struct {
			InSession bool `json:"in_session"`
		} `json:"senate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return SessionStatus{}
	}

	return SessionStatus{House: doc.House.InSession, Senate: doc.Senate.InSession, Known: true}
}
