package database

// Post lifecycle statuses. Queue membership is the "queued" status, not a
// separate structure.
const (
	StatusDraft    = "draft"
	StatusQueued   = "queued"
	StatusPosted   = "posted"
	StatusRejected = "rejected"
)

// Batch statuses.
const (
	BatchSubmitted = "submitted"
	BatchCompleted = "completed"
	BatchFailed    = "failed"
)

// Trend is a persisted aggregated trend.
type Trend struct {
	ID              int64
	Topic           string
	Sources         []string
	Volume          int
	RelevanceWeight float64
	Used            bool
	FirstSeen       *string
	LastSeen        *string
}

// Post represents generated content in any lifecycle state.
type Post struct {
	ID              int64
	Content         string
	TrendTopic      *string
	BillRef         *string
	Status          string
	EngagementScore int
	CreatedAt       *string
	PostedAt        *string
}

// CooldownRecord is one row of a cooldown table.
type CooldownRecord struct {
	Key      string
	LastUsed string
	UseCount int
}

// SafetyLogEntry is an immutable record of one safety evaluation.
type SafetyLogEntry struct {
	ID         int64
	Content    string
	TotalScore int
	Verdict    string
	Breakdown  map[string]int
	CreatedAt  *string
}

// DaemonCycle is one row per control-loop iteration.
type DaemonCycle struct {
	ID          int64
	CycleType   string
	Scanned     int
	Engaged     int
	Tracked     int
	Expired     int
	Posted      int
	Topic       *string
	Error       *string
	StartedAt   *string
	CompletedAt *string
	DurationMs  *int64
}

// CycleCounts holds the per-cycle counters written at close.
type CycleCounts struct {
	Scanned int
	Engaged int
	Tracked int
	Expired int
	Posted  int
}

// Batch represents a submitted group of generation requests.
type Batch struct {
	ID          int64
	BatchID     string
	Status      string
	Requests    string
	SubmittedAt *string
	CompletedAt *string
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	TrendsTracked  int
	UnusedTrends   int
	DraftPosts     int
	QueuedPosts    int
	PostedPosts    int
	RejectedPosts  int
	CyclesRun      int
	FailedCycles   int
	SafetyChecks   int
	PendingBatches int
}
