package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// MondrianYAMLConfig represents the complete mondrian.yaml file structure.
type MondrianYAMLConfig struct {
	Advisors   map[string]AdvisorConfig `yaml:"advisors"`
	Defaults   *Defaults                `yaml:"defaults"`
	Queue      *QueueConfig             `yaml:"queue"`
	Retrieval  *RetrievalConfig         `yaml:"retrieval"`
	Supervisor *SupervisorConfig        `yaml:"supervisor"`
	Server     *ServerConfig            `yaml:"server"`
	Model      *ModelConfig             `yaml:"model"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load mondrian.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined advisors
//  5. Merge built-in + user-defined queue/retrieval/supervisor config
//  6. Build the advisor registry
//  7. Apply default values
//  8. Validate all configuration
//  9. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "advisors", stats.Advisors)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userCfg, err := loader.loadMondrianYAML()
	if err != nil {
		return nil, NewLoadError("mondrian.yaml", err)
	}

	builtin := GetBuiltinConfig()

	advisors := mergeAdvisors(builtin.Advisors, userCfg.Advisors)
	advisorRegistry := NewAdvisorRegistry(advisors)

	defaults := userCfg.Defaults
	if defaults == nil {
		defaults = DefaultDefaults()
	} else if defaults.Mode == "" {
		defaults.Mode = DefaultDefaults().Mode
	}

	queueConfig := DefaultQueueConfig()
	if userCfg.Queue != nil {
		if err := mergo.Merge(queueConfig, userCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	retrievalConfig := DefaultRetrievalConfig()
	if userCfg.Retrieval != nil {
		if err := mergo.Merge(retrievalConfig, userCfg.Retrieval, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retrieval config: %w", err)
		}
	}

	supervisorConfig := DefaultSupervisorConfig()
	if userCfg.Supervisor != nil {
		if err := mergo.Merge(supervisorConfig, userCfg.Supervisor, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, fmt.Errorf("failed to merge supervisor config: %w", err)
		}
	}

	serverConfig := DefaultServerConfig()
	if userCfg.Server != nil {
		if err := mergo.Merge(serverConfig, userCfg.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}

	modelConfig := DefaultModelConfig()
	if userCfg.Model != nil {
		if err := mergo.Merge(modelConfig, userCfg.Model, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge model config: %w", err)
		}
	}

	return &Config{
		configDir:       configDir,
		Defaults:        defaults,
		Queue:           queueConfig,
		Retrieval:       retrievalConfig,
		Supervisor:      supervisorConfig,
		Server:          serverConfig,
		Model:           modelConfig,
		AdvisorRegistry: advisorRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	if len(cfg.AdvisorRegistry.GetAll()) == 0 {
		return NewValidationError("advisor", "", "", fmt.Errorf("%w: at least one advisor must be configured", ErrMissingRequiredField))
	}
	for id, adv := range cfg.AdvisorRegistry.GetAll() {
		if adv.PromptBody == "" {
			return NewValidationError("advisor", id, "prompt_body", ErrMissingRequiredField)
		}
	}
	if cfg.Queue.WorkerCount < 1 {
		return NewValidationError("queue", "", "worker_count", ErrInvalidValue)
	}
	if cfg.Retrieval.MinStdDev <= 0 {
		return NewValidationError("retrieval", "", "min_std_dev", ErrInvalidValue)
	}
	if cfg.Retrieval.MaxRepresentatives < 1 {
		return NewValidationError("retrieval", "", "max_representatives", ErrInvalidValue)
	}
	return nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using ${VAR}/$VAR syntax. Missing
	// variables expand to empty string; validation catches required
	// fields left empty.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadMondrianYAML() (*MondrianYAMLConfig, error) {
	var cfg MondrianYAMLConfig
	cfg.Advisors = make(map[string]AdvisorConfig)

	if err := l.loadYAML("mondrian.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
