// Package cycle drives the recurring decision loop: ingest signals,
// aggregate trends, score candidates, gate them through the safety
// pipeline, and dispatch what survives. Every iteration is recorded as one
// daemon cycle row, closed exactly once.
package cycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/porkreport/porkbot/internal/cooldown"
	"github.com/porkreport/porkbot/internal/database"
	"github.com/porkreport/porkbot/internal/generate"
	"github.com/porkreport/porkbot/internal/publish"
	"github.com/porkreport/porkbot/internal/queue"
	"github.com/porkreport/porkbot/internal/ratelimit"
	"github.com/porkreport/porkbot/internal/research"
	"github.com/porkreport/porkbot/internal/safety"
	"github.com/porkreport/porkbot/internal/scoring"
	"github.com/porkreport/porkbot/internal/trends"
)

// Cycle types as recorded in daemon_cycles.
const (
	CycleScan = "scan"
	CyclePost = "post"
)

const maxCandidates = 25

// Deps are the orchestrator's collaborators. Everything is passed in
// explicitly; the orchestrator holds no hidden state beyond the store.
type Deps struct {
	DB             *database.DB
	Adapters       []trends.Adapter
	BoostMode      trends.BoostMode
	Keywords       scoring.Keywords
	Peak           scoring.PeakWindow
	SessionFeed    *scoring.SessionFeed
	Safety         *safety.Pipeline
	TopicCooldown  *cooldown.Tracker
	TopicWindow    time.Duration
	AuthorCooldown *cooldown.Tracker
	AuthorWindow   time.Duration
	PostLimiter    *ratelimit.Limiter
	Fetcher        *research.Fetcher
	Generator      generate.Generator
	Publisher      publish.Publisher
	Queue          *queue.Queue
	TrendExpiry    time.Duration
}

// Orchestrator runs scan and post cycles. It is the only writer of daemon
// cycle rows.
type Orchestrator struct {
	deps Deps
	now  func() time.Time
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps, now: time.Now}
}

// SetClock overrides the orchestrator's clock. Test use only.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// RunScanCycle ingests signals, persists the aggregated trends, and expires
// stale trend and cooldown rows.
func (o *Orchestrator) RunScanCycle(ctx context.Context) (err error) {
	cycleID, err := o.deps.DB.OpenCycle(CycleScan)
	if err != nil {
		return fmt.Errorf("opening scan cycle: %w", err)
	}
	start := o.now()
	var counts database.CycleCounts
	defer o.closeCycle(cycleID, &counts, nil, &err, start)

	signals := trends.CollectSignals(ctx, o.deps.Adapters)
	counts.Scanned = len(signals)

	aggregated := trends.Aggregate(signals, o.deps.BoostMode)
	now := database.FormatTime(o.now())
	for _, t := range aggregated {
		if upsertErr := o.deps.DB.UpsertTrend(t.Topic, t.Sources, t.Volume, t.RelevanceWeight, now); upsertErr != nil {
			err = fmt.Errorf("persisting trend %q: %w", t.Topic, upsertErr)
			return err
		}
		counts.Tracked++
	}

	cutoff := database.FormatTime(o.now().Add(-o.deps.TrendExpiry))
	expired, expireErr := o.deps.DB.DeleteTrendsBefore(cutoff)
	if expireErr != nil {
		err = fmt.Errorf("expiring trends: %w", expireErr)
		return err
	}
	counts.Expired = expired

	trackers := []struct {
		tracker *cooldown.Tracker
		window  time.Duration
	}{
		{o.deps.TopicCooldown, o.deps.TopicWindow},
		{o.deps.AuthorCooldown, o.deps.AuthorWindow},
	}
	for _, tr := range trackers {
		if tr.tracker == nil {
			continue
		}
		cleared, clearErr := tr.tracker.ClearExpired(tr.window)
		if clearErr != nil {
			err = fmt.Errorf("clearing cooldowns: %w", clearErr)
			return err
		}
		counts.Expired += cleared
	}

	// Generators that process batches asynchronously get their pending
	// batches settled alongside the scan. A poll failure is logged, not
	// fatal: the batch stays pending and the next scan retries it.
	if bg, ok := o.deps.Generator.(generate.BatchGenerator); ok {
		resolved, pollErr := generate.NewBatches(o.deps.DB).PollPending(ctx, bg)
		if pollErr != nil {
			log.Printf("Polling pending batches failed: %v", pollErr)
		} else if resolved > 0 {
			log.Printf("Resolved %d generator batches", resolved)
		}
	}

	log.Printf("Scan cycle: %d signals, %d trends tracked, %d expired",
		counts.Scanned, counts.Tracked, counts.Expired)
	return nil
}

// RunPostCycle runs one full decision iteration: pick the best eligible
// trend, generate content for it, gate it, and dispatch on ALLOW.
func (o *Orchestrator) RunPostCycle(ctx context.Context) (err error) {
	cycleID, err := o.deps.DB.OpenCycle(CyclePost)
	if err != nil {
		return fmt.Errorf("opening post cycle: %w", err)
	}
	start := o.now()
	var counts database.CycleCounts
	var actedTopic *string
	defer o.closeCycle(cycleID, &counts, &actedTopic, &err, start)

	signals := trends.CollectSignals(ctx, o.deps.Adapters)
	counts.Scanned = len(signals)

	aggregated := trends.Aggregate(signals, o.deps.BoostMode)
	now := database.FormatTime(o.now())
	recentTopics := make([]string, 0, len(aggregated))
	for _, t := range aggregated {
		recentTopics = append(recentTopics, t.Topic)
		if upsertErr := o.deps.DB.UpsertTrend(t.Topic, t.Sources, t.Volume, t.RelevanceWeight, now); upsertErr != nil {
			err = fmt.Errorf("persisting trend %q: %w", t.Topic, upsertErr)
			return err
		}
		counts.Tracked++
	}

	candidate, priority, pickErr := o.pickCandidate(ctx, aggregated)
	if pickErr != nil {
		err = pickErr
		return err
	}
	if candidate == nil {
		log.Println("Post cycle: no eligible trend")
		return nil
	}
	counts.Engaged = 1
	log.Printf("Post cycle: generating for %q (priority %d)", candidate.Topic, priority)

	pc := o.promptContext(ctx, *candidate)
	text, skip, genErr := o.deps.Generator.Generate(ctx, pc)
	if genErr != nil {
		err = fmt.Errorf("generating content for %q: %w", candidate.Topic, genErr)
		return err
	}
	if skip {
		log.Printf("Generator skipped %q", candidate.Topic)
		return nil
	}

	engagement := scoring.Engagement(text)
	eval, evalErr := o.deps.Safety.Evaluate(ctx, text, recentTopics)
	if evalErr != nil {
		err = evalErr
		return err
	}

	topic := candidate.Topic
	switch eval.Verdict {
	case safety.VerdictAllow:
		if err = o.dispatch(ctx, text, pc, topic, engagement); err != nil {
			return err
		}
		actedTopic = &topic
		counts.Posted = 1
	case safety.VerdictReview:
		id, insertErr := o.deps.DB.InsertPost(text, &topic, billRefPtr(pc), database.StatusDraft, engagement)
		if insertErr != nil {
			err = fmt.Errorf("saving review candidate: %w", insertErr)
			return err
		}
		if err = o.deps.Queue.Enqueue(id); err != nil {
			return err
		}
		log.Printf("Post held for review (safety score %d)", eval.Total)
	case safety.VerdictReject:
		if _, insertErr := o.deps.DB.InsertPost(text, &topic, billRefPtr(pc), database.StatusRejected, engagement); insertErr != nil {
			err = fmt.Errorf("recording rejected post: %w", insertErr)
			return err
		}
		log.Printf("Post rejected (safety score %d)", eval.Total)
	}

	return nil
}

// DryRun prints the decision trace for the current signals without opening
// a cycle row, generating, or publishing. Trends are not persisted.
func (o *Orchestrator) DryRun(ctx context.Context) error {
	signals := trends.CollectSignals(ctx, o.deps.Adapters)
	aggregated := trends.Aggregate(signals, o.deps.BoostMode)
	log.Printf("Dry run: %d signals, %d trends", len(signals), len(aggregated))

	session := scoring.SessionStatus{}
	if o.deps.SessionFeed != nil {
		session = o.deps.SessionFeed.Fetch(ctx)
	}
	timing := scoring.Timing(o.now(), o.deps.Peak, session.Active())

	limit := len(aggregated)
	if limit > maxCandidates {
		limit = maxCandidates
	}
	for i := 0; i < limit; i++ {
		t := aggregated[i]
		relevance := scoring.Relevance(t, o.deps.Keywords)
		priority := scoring.TrendPriority(relevance, timing, t.Volume)

		eligible := "eligible"
		stored, err := o.deps.DB.GetTrend(t.Topic)
		if err != nil {
			return err
		}
		if stored != nil && stored.Used {
			eligible = "already used"
		} else if ok, err := o.deps.TopicCooldown.CanAct(t.Topic, o.deps.TopicWindow); err != nil {
			return err
		} else if !ok {
			eligible = "on cooldown"
		}
		log.Printf("  %-30s priority %3d (relevance %d, timing %d, volume %d) %s",
			t.Topic, priority, relevance, timing, t.Volume, eligible)
	}
	return nil
}

// pickCandidate ranks the aggregated trends by pre-content priority and
// returns the best one that is off cooldown and not already used.
func (o *Orchestrator) pickCandidate(ctx context.Context, aggregated []trends.Aggregated) (*trends.Aggregated, int, error) {
	session := scoring.SessionStatus{}
	if o.deps.SessionFeed != nil {
		session = o.deps.SessionFeed.Fetch(ctx)
	}
	timing := scoring.Timing(o.now(), o.deps.Peak, session.Active())

	var best *trends.Aggregated
	bestPriority := -1

	limit := len(aggregated)
	if limit > maxCandidates {
		limit = maxCandidates
	}
	for i := 0; i < limit; i++ {
		t := aggregated[i]

		stored, err := o.deps.DB.GetTrend(t.Topic)
		if err != nil {
			return nil, 0, fmt.Errorf("checking trend %q: %w", t.Topic, err)
		}
		if stored != nil && stored.Used {
			continue
		}

		ok, err := o.deps.TopicCooldown.CanAct(t.Topic, o.deps.TopicWindow)
		if err != nil {
			return nil, 0, fmt.Errorf("checking cooldown for %q: %w", t.Topic, err)
		}
		if !ok {
			continue
		}

		relevance := scoring.Relevance(t, o.deps.Keywords)
		priority := scoring.TrendPriority(relevance, timing, t.Volume)
		if priority > bestPriority {
			trend := t
			best = &trend
			bestPriority = priority
		}
	}
	return best, bestPriority, nil
}

func (o *Orchestrator) promptContext(ctx context.Context, t trends.Aggregated) generate.PromptContext {
	pc := generate.PromptContext{Topic: t.Topic}
	if ref, ok := t.Metadata["bill_ref"]; ok {
		pc.BillRef = ref
	}
	if link, ok := t.Metadata["link"]; ok {
		pc.SourceLinks = append(pc.SourceLinks, link)
	}
	if o.deps.Fetcher != nil && len(pc.SourceLinks) > 0 {
		pc.Research = o.deps.Fetcher.Fetch(ctx, pc.SourceLinks)
	}
	return pc
}

// dispatch publishes allowed content: rate limit, publish, record the post,
// and start the topic cooldown.
func (o *Orchestrator) dispatch(ctx context.Context, text string, pc generate.PromptContext, topic string, engagement int) error {
	if err := o.deps.PostLimiter.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring post quota: %w", err)
	}

	if err := o.deps.Publisher.Publish(ctx, text, pc.SourceLinks); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}

	id, err := o.deps.DB.InsertPost(text, &topic, billRefPtr(pc), database.StatusDraft, engagement)
	if err != nil {
		return fmt.Errorf("recording post: %w", err)
	}
	if err := o.deps.DB.SetPostStatus(id, database.StatusPosted); err != nil {
		return fmt.Errorf("marking post posted: %w", err)
	}
	if err := o.deps.TopicCooldown.Record(topic); err != nil {
		return fmt.Errorf("recording topic cooldown: %w", err)
	}
	if err := o.deps.DB.MarkTrendUsed(topic); err != nil {
		return fmt.Errorf("marking trend used: %w", err)
	}
	log.Printf("Published post for %q", topic)
	return nil
}

// closeCycle is the guaranteed finalizer for a cycle row. It converts a
// panic into the cycle error and closes the row exactly once, even when the
// iteration failed partway through.
func (o *Orchestrator) closeCycle(cycleID int64, counts *database.CycleCounts, topic **string, errp *error, start time.Time) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("cycle panic: %v", r)
	}
	var actedTopic *string
	if topic != nil {
		actedTopic = *topic
	}
	if closeErr := o.deps.DB.CloseCycle(cycleID, *counts, actedTopic, *errp, o.now().Sub(start)); closeErr != nil {
		log.Printf("Failed to close cycle %d: %v", cycleID, closeErr)
	}
}

func billRefPtr(pc generate.PromptContext) *string {
	if pc.BillRef == "" {
		return nil
	}
	return &pc.BillRef
}
