package webhook

// Commit is one entry of a push event's commit list.
type Commit struct {
	SHA     string `json:"id"`
	Message string `json:"message"`
	Author  string `json:"author_name"`
}

// PushEvent is the subset of a GitHub-shaped `push` webhook payload this
// handler reads.
type PushEvent struct {
	Ref       string   `json:"ref"`
	Commits   []Commit `json:"commits"`
	Timestamp int64    `json:"-"`
}

// PullRequestEvent is the subset of a `pull_request` webhook payload this
// handler reads. Action is "opened", "closed", etc; Merged is GitHub's
// pull_request.merged boolean, only meaningful when Action == "closed".
type PullRequestEvent struct {
	Action    string `json:"action"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"html_url"`
	HeadRef   string `json:"head_ref"`
	HeadSHA   string `json:"head_sha"`
	Merged    bool   `json:"merged"`
	Timestamp int64  `json:"-"`
}

// WorkflowRunEvent is the subset of a `workflow_run` webhook payload this
// handler reads.
type WorkflowRunEvent struct {
	Status            string `json:"status"`
	Conclusion        string `json:"conclusion"`
	Name              string `json:"name"`
	HeadSHA           string `json:"head_sha"`
	HeadCommitMessage string `json:"head_commit_message"`
	Timestamp         int64  `json:"-"`
}

// CheckRunEvent is the subset of a `check_run` webhook payload this handler
// reads.
type CheckRunEvent struct {
	Status        string `json:"status"`
	Conclusion    string `json:"conclusion"`
	Name          string `json:"name"`
	OutputSummary string `json:"output_summary"`
	HeadSHA       string `json:"head_sha"`
	Timestamp     int64  `json:"-"`
}

// CIEvent is the generic `ci_event` payload, dispatched by EventType onto
// ci_complete/test_result/performance/incident handling.
type CIEvent struct {
	EventType     string  `json:"event_type"`
	CommitSHA     string  `json:"commit_sha"`
	Message       string  `json:"message"`
	Passed        bool    `json:"passed"`
	Severity      string  `json:"severity"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	ThroughputRPS float64 `json:"throughput_rps"`
	Timestamp     int64   `json:"-"`
}
