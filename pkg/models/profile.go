package models

// Dimension is one of the eight fixed analysis dimensions. The ordering
// here is the dimension index used for tie-breaking in retrieval (spec.md
// §4.B step 2: "ties broken by ... dimension index").
type Dimension int

const (
	DimensionComposition Dimension = iota
	DimensionLighting
	DimensionFocusSharpness
	DimensionColorHarmony
	DimensionSubjectIsolation
	DimensionDepthPerspective
	DimensionVisualBalance
	DimensionEmotionalImpact
	dimensionCount
)

// NumDimensions is the fixed width of a dimensional score vector.
const NumDimensions = int(dimensionCount)

// DimensionNames is the stable, index-ordered name list.
var DimensionNames = [NumDimensions]string{
	"composition",
	"lighting",
	"focus_sharpness",
	"color_harmony",
	"subject_isolation",
	"depth_perspective",
	"visual_balance",
	"emotional_impact",
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= NumDimensions {
		return "unknown"
	}
	return DimensionNames[d]
}

// ScoreVector holds the eight dimensional scores. A nil entry means the
// dimension is absent for this vector (spec.md §4.B: "user vector missing
// any dimension ⇒ treat that dimension as non-underperforming").
type ScoreVector [NumDimensions]*float64

// Get returns the score for a dimension and whether it is present.
func (v ScoreVector) Get(d Dimension) (float64, bool) {
	p := v[d]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores a score for a dimension.
func (v *ScoreVector) Set(d Dimension, score float64) {
	s := score
	v[d] = &s
}

// Complete reports whether every dimension has a score — required for a
// reference profile to participate in retrieval (spec.md §3 invariant).
func (v ScoreVector) Complete() bool {
	for _, p := range v {
		if p == nil {
			return false
		}
	}
	return true
}

// ImageMetadata is the optional descriptive block on a DimensionalProfile.
type ImageMetadata struct {
	Title        string `json:"title,omitempty"`
	DateTaken    string `json:"date_taken,omitempty"`
	Location     string `json:"location,omitempty"`
	Significance string `json:"significance,omitempty"`
}

// HasTitle and HasSignificance back the representative-selection
// tie-break rule in spec.md §4.B step 3 ("richer metadata: non-empty
// title, then significance").
func (m *ImageMetadata) HasTitle() bool {
	return m != nil && m.Title != ""
}

func (m *ImageMetadata) HasSignificance() bool {
	return m != nil && m.Significance != ""
}

// DimensionalProfile is an image's scores along the eight fixed
// dimensions, identified by (AdvisorID, ImageRef) (spec.md §3).
type DimensionalProfile struct {
	AdvisorID string `json:"advisor_id"`
	ImageRef  string `json:"image_ref"`

	Scores   ScoreVector         `json:"scores"`
	Comments [NumDimensions]string `json:"comments"`

	OverallGrade *float64       `json:"overall_grade,omitempty"`
	Caption      string         `json:"caption,omitempty"`
	Metadata     *ImageMetadata `json:"metadata,omitempty"`

	// Embedding is a unit-normalized vector of fixed dimension D when
	// present (spec.md §3 invariant).
	Embedding []float64 `json:"embedding,omitempty"`

	TechniqueMap map[string]string `json:"technique_map,omitempty"`

	// JobID is set for transient Pass-1 profiles keyed to a job; empty for
	// durable reference profiles (spec.md §3 Lifecycle).
	JobID string `json:"job_id,omitempty"`
}

// HasEmbedding reports whether this profile can participate in the visual
// similarity path.
func (p *DimensionalProfile) HasEmbedding() bool {
	return len(p.Embedding) > 0
}
