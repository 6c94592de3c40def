package config

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string

	Defaults   *Defaults
	Queue      *QueueConfig
	Retrieval  *RetrievalConfig
	Supervisor *SupervisorConfig
	Server     *ServerConfig
	Model      *ModelConfig

	AdvisorRegistry *AdvisorRegistry
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	Advisors int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Advisors: len(c.AdvisorRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAdvisor retrieves an advisor configuration by id. Convenience wrapper
// around AdvisorRegistry.Get().
func (c *Config) GetAdvisor(id string) (*AdvisorConfig, error) {
	return c.AdvisorRegistry.Get(id)
}
