package config

// RetrievalConfig holds the tunables for the dimensional-distribution RAG
// and visual-similarity paths (spec §4.B).
type RetrievalConfig struct {
	// UnderperformanceK is the threshold multiplier k in
	// "u_d < mean_d - k*stddev_d". Default 1.0.
	UnderperformanceK float64 `yaml:"underperformance_k"`

	// MinStdDev is the floor applied to a dimension's population standard
	// deviation to avoid divide-by-zero when reference scores are
	// identical. Default 0.25.
	MinStdDev float64 `yaml:"min_std_dev"`

	// MaxRepresentatives caps the number of representatives returned by
	// the dimensional engine (N_rep). Default 3.
	MaxRepresentatives int `yaml:"max_representatives"`

	// VisualTopK caps the number of hits returned by the visual
	// similarity engine. Default 3.
	VisualTopK int `yaml:"visual_top_k"`
}

// DefaultRetrievalConfig returns the built-in retrieval defaults from
// spec.md §4.B.
func DefaultRetrievalConfig() *RetrievalConfig {
	return &RetrievalConfig{
		UnderperformanceK:  1.0,
		MinStdDev:          0.25,
		MaxRepresentatives: 3,
		VisualTopK:         3,
	}
}
