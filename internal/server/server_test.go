package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/porkreport/porkbot/internal/database"
	"github.com/porkreport/porkbot/internal/publish"
	"github.com/porkreport/porkbot/internal/ratelimit"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, text string, _ []string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, text)
	return nil
}

// newTestServer builds a Server with a post limiter of the given capacity.
// The refill rate is near zero so tokens spent during a test stay spent.
func newTestServer(t *testing.T, db *database.DB, pub publish.Publisher, capacity int) *Server {
	t.Helper()
	limiter, err := ratelimit.New("post", capacity, 0.0001)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	srv, err := New(db, pub, limiter, 6*time.Hour)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func queuePost(t *testing.T, db *database.DB, content, topic string) int64 {
	t.Helper()
	id, err := db.InsertPost(content, ptr(topic), nil, database.StatusDraft, 60)
	if err != nil {
		t.Fatalf("failed to insert post: %v", err)
	}
	if err := db.SetPostStatus(id, database.StatusQueued); err != nil {
		t.Fatalf("failed to queue post: %v", err)
	}
	return id
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db, &recordingPublisher{}, 17)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Trends tracked") {
		t.Error("expected 'Trends tracked' in response body")
	}
}

func TestQueueRoute(t *testing.T) {
	db := openTestDB(t)
	queuePost(t, db, "Congress spent $2,000,000 on llama leasing.", "llamagate")

	srv := newTestServer(t, db, &recordingPublisher{}, 17)

	req := httptest.NewRequest("GET", "/queue", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "llama leasing") {
		t.Error("expected queued post content in response")
	}
	if !strings.Contains(body, "/queue/1/approve") {
		t.Error("expected approve form in response")
	}
}

func TestApproveRoute(t *testing.T) {
	db := openTestDB(t)
	now := database.FormatTime(time.Now().UTC())
	if err := db.UpsertTrend("llamagate", []string{"congress_gov"}, 900, 1.0, now); err != nil {
		t.Fatalf("failed to seed trend: %v", err)
	}
	id := queuePost(t, db, "Congress spent $2,000,000 on llama leasing.", "llamagate")

	pub := &recordingPublisher{}
	srv := newTestServer(t, db, pub, 17)

	req := httptest.NewRequest("POST", fmt.Sprintf("/queue/%d/approve", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.published))
	}

	post, err := db.GetPost(id)
	if err != nil {
		t.Fatalf("failed to load post: %v", err)
	}
	if post.Status != database.StatusPosted {
		t.Errorf("expected posted status, got %q", post.Status)
	}
	trend, _ := db.GetTrend("llamagate")
	if trend == nil || !trend.Used {
		t.Error("expected trend marked used after approval")
	}
	rec2, err := db.GetCooldown(database.CooldownTopicsTable, "llamagate")
	if err != nil {
		t.Fatalf("failed to load cooldown: %v", err)
	}
	if rec2 == nil {
		t.Error("expected topic cooldown recorded after approval")
	}
}

func TestApproveRejectsNonQueuedPost(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertPost("Draft only.", nil, nil, database.StatusDraft, 50)
	if err != nil {
		t.Fatalf("failed to insert post: %v", err)
	}

	pub := &recordingPublisher{}
	srv := newTestServer(t, db, pub, 17)

	req := httptest.NewRequest("POST", fmt.Sprintf("/queue/%d/approve", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if len(pub.published) != 0 {
		t.Error("draft post must not be published")
	}
	post, _ := db.GetPost(id)
	if post.Status != database.StatusDraft {
		t.Errorf("expected draft status unchanged, got %q", post.Status)
	}
}

func TestApproveHonorsPostQuota(t *testing.T) {
	db := openTestDB(t)
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, queuePost(t, db, fmt.Sprintf("Earmark roundup number %d.", i), fmt.Sprintf("topic%d", i)))
	}

	pub := &recordingPublisher{}
	srv := newTestServer(t, db, pub, 2)

	for _, id := range ids {
		req := httptest.NewRequest("POST", fmt.Sprintf("/queue/%d/approve", id), nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 publishes before the quota ran out, got %d", len(pub.published))
	}
	posts, err := db.GetQueuedPosts(10)
	if err != nil {
		t.Fatalf("failed to load queue: %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("expected 3 posts still queued, got %d", len(posts))
	}
}

func TestApproveRefusesCoolingTopic(t *testing.T) {
	db := openTestDB(t)
	now := database.FormatTime(time.Now().UTC())
	if err := db.TouchCooldown(database.CooldownTopicsTable, "llamagate", now); err != nil {
		t.Fatalf("failed to seed cooldown: %v", err)
	}
	id := queuePost(t, db, "Congress spent $2,000,000 on llama leasing.", "llamagate")

	pub := &recordingPublisher{}
	srv := newTestServer(t, db, pub, 17)

	req := httptest.NewRequest("POST", fmt.Sprintf("/queue/%d/approve", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if len(pub.published) != 0 {
		t.Error("post on a cooling topic must not be published")
	}
	post, _ := db.GetPost(id)
	if post.Status != database.StatusQueued {
		t.Errorf("expected post to stay queued, got %q", post.Status)
	}
}

func TestDiscardRoute(t *testing.T) {
	db := openTestDB(t)
	id := queuePost(t, db, "Borderline take.", "sometopic")

	srv := newTestServer(t, db, &recordingPublisher{}, 17)

	req := httptest.NewRequest("POST", fmt.Sprintf("/queue/%d/discard", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	post, _ := db.GetPost(id)
	if post.Status != database.StatusRejected {
		t.Errorf("expected rejected status, got %q", post.Status)
	}
}

func TestSafetyRoute(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertSafetyEntry("Some content.", 62, "REJECT", map[string]int{"denylist": 0, "content_filter": 62}); err != nil {
		t.Fatalf("failed to insert safety entry: %v", err)
	}

	srv := newTestServer(t, db, &recordingPublisher{}, 17)

	req := httptest.NewRequest("GET", "/safety", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "REJECT") {
		t.Error("expected verdict in response")
	}
	if !strings.Contains(body, "content_filter: 62") {
		t.Error("expected breakdown in response")
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db, &recordingPublisher{}, 17)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
