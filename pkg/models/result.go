package models

import "time"

// Representative is one reference profile selected to exemplify strong
// performance on an underperforming dimension (spec.md §4.B step 3/4).
type Representative struct {
	Dimension      Dimension `json:"dimension"`
	Gap            float64   `json:"gap"`
	Mean           float64   `json:"mean"`
	StdDev         float64   `json:"std_dev"`
	UserScore      float64   `json:"user_score"`
	RepresentativeScore float64 `json:"representative_score"`
	ImageRef       string    `json:"image_ref"`
	Comment        string    `json:"comment"`
	Metadata       *ImageMetadata `json:"metadata,omitempty"`
}

// VisualHit is one top-k visual similarity result (spec.md §4.B "Visual
// similarity").
type VisualHit struct {
	ImageRef   string  `json:"image_ref"`
	Similarity float64 `json:"similarity"`
}

// StrategyMetadata carries strategy-specific diagnostics attached to a
// Result (spec.md §4.C Result: "strategy-specific metadata (timings,
// number of representative examples used, adapter handle)").
type StrategyMetadata struct {
	AdapterHandle        string        `json:"adapter_handle,omitempty"`
	RepresentativeCount  int           `json:"representative_count,omitempty"`
	VisualHitCount       int           `json:"visual_hit_count,omitempty"`
	Degraded             bool          `json:"degraded,omitempty"`
	Pass1Duration        time.Duration `json:"pass1_duration,omitempty"`
	QueryDuration        time.Duration `json:"query_duration,omitempty"`
	Pass2Duration        time.Duration `json:"pass2_duration,omitempty"`
	TotalDuration        time.Duration `json:"total_duration,omitempty"`
}

// Result is what the Strategy Dispatcher's Analyze operation returns
// (spec.md §4.C).
type Result struct {
	AdvisorID     string
	EffectiveMode Mode
	Scores        ScoreVector
	Comments      [NumDimensions]string
	OverallGrade  float64
	Metadata      StrategyMetadata
}
