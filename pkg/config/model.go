package config

// ModelConfig points at the out-of-process collaborators the Strategy
// Dispatcher calls through: the vision model service (spec.md §6 "Model
// Callable interface") and the embeddings/caption sidecar (spec.md §6
// "Retrieval-subsystem interface"). Both are black-box callables per
// spec.md §1; this config only carries how to reach them.
type ModelConfig struct {
	// ServiceAddr is the model service's gRPC address.
	ServiceAddr string `yaml:"service_addr,omitempty"`

	// BaseModelHandle identifies the default (non-adapter) model handle
	// passed to baseline/RAG strategy calls.
	BaseModelHandle string `yaml:"base_model_handle,omitempty"`

	// EmbedServiceAddr is the embeddings/caption sidecar's HTTP base URL.
	// Empty disables the visual-similarity path (treated as
	// "unavailable", never fatal, per spec.md §4.B).
	EmbedServiceAddr string `yaml:"embed_service_addr,omitempty"`
}

// DefaultModelConfig returns the built-in model-collaborator addresses.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		ServiceAddr:     "localhost:9090",
		BaseModelHandle: "base",
	}
}
