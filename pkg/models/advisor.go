package models

// Advisor is a configured persona: prompt + reference imagery + optional
// adapter. Loaded at startup, read-mostly; changes never affect in-flight
// jobs (spec.md §3 Advisor).
type Advisor struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Biography     string   `json:"biography"`
	PromptBody    string   `json:"prompt_body"`
	FocusAreas    []string `json:"focus_areas"`
	AdapterHandle string   `json:"adapter_handle,omitempty"`
	Category      string   `json:"category"`
}

// HasAdapter reports whether this advisor has a configured LoRA adapter
// handle. It does not mean the adapter has successfully loaded — that is
// the adapter cache's job (pkg/adaptercache).
func (a *Advisor) HasAdapter() bool {
	return a.AdapterHandle != ""
}
