package config

const (
	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"

	defaultGenerationModel = "gemma3:latest"
	defaultTemperature     = 1.0
	defaultTopP            = 0.95

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultMemoryLimit = 5

	defaultEventsBrokers = "localhost:9092"
	defaultEventsTopic   = "mythos.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Generation: GenerationConfig{
			Provider:    defaultProvider,
			Target:      defaultTarget,
			Model:       defaultGenerationModel,
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
			Streaming:   true,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider: VectorStoreLocal,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Memory: MemoryConfig{
			Enabled: true,
			Limit:   defaultMemoryLimit,
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: defaultEventsBrokers,
			Topic:   defaultEventsTopic,
		},
	}
}
