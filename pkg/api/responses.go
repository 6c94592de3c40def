package api

import (
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/queue"
)

// uploadResponse is POST /upload's response shape (spec.md §6).
type uploadResponse struct {
	JobID      string      `json:"job_id"`
	Advisor    string      `json:"advisor"`
	Status     models.Status `json:"status"`
	EnableRAG  bool        `json:"enable_rag"`
	StreamURL  string      `json:"stream_url"`
	StatusURL  string      `json:"status_url"`
}

// advisorResponse is the JSON shape of one advisor catalog entry.
type advisorResponse struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Biography     string   `json:"biography,omitempty"`
	PromptBody    string   `json:"prompt_body"`
	FocusAreas    []string `json:"focus_areas,omitempty"`
	AdapterHandle string   `json:"adapter_handle,omitempty"`
	Category      string   `json:"category,omitempty"`
}

func toAdvisorResponse(adv *models.Advisor) advisorResponse {
	return advisorResponse{
		ID:            adv.ID,
		DisplayName:   adv.DisplayName,
		Biography:     adv.Biography,
		PromptBody:    adv.PromptBody,
		FocusAreas:    adv.FocusAreas,
		AdapterHandle: adv.AdapterHandle,
		Category:      adv.Category,
	}
}

// healthResponse is GET /health's response shape: status, version and,
// when present, the worker pool's health snapshot. It has no mode field.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	WorkerPool *queue.PoolHealth `json:"worker_pool,omitempty"`
}
