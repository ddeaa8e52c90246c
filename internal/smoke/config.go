package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Repeat     int           // Requests per case; 2 or more checks determinism
	Workers    int           // Concurrent cases in flight
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report path
	Verbose    bool          // Log every case
}

// Case is one prompt scored against one target.
type Case struct {
	Tier        string `json:"tier"`
	Target      string `json:"target"`
	Prompt      string `json:"prompt"`
	TargetToken bool   `json:"targetToken"`
}

// Outcome is the result of running one case.
type Outcome struct {
	Case       Case     `json:"case"`
	AIScore    int      `json:"aiScore"`
	Similarity float64  `json:"similarity01"`
	Mode       string   `json:"scoringMode"`
	Note       string   `json:"note"`
	Tip        string   `json:"tip"`
	Problems   []string `json:"problems,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	RunID      string         `json:"runId"`
	Cases      int            `json:"cases"`
	Requests   int            `json:"requests"`
	Passed     int            `json:"passed"`
	Failed     int            `json:"failed"`
	ModeCounts map[string]int `json:"modeCounts"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    time.Time      `json:"endTime"`
	Duration   time.Duration  `json:"duration"`
}
