package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the matching service.
type Profile struct {
	// Embedding provider configuration (OpenAI-compatible protocol).
	// All providers (openai, siliconflow, ollama, dashscope) use the same config.
	EmbeddingProvider   string // Provider identifier: openai, siliconflow, ollama, dashscope
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string // Optional, has default per provider
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTimeout    int // Request timeout in seconds (default: 30)

	// Matching configuration
	MatchMinScore   float64 // Minimum skill-match score for project ranking
	RelevanceTopK   int     // Default number of content items attached to a question
	BackfillLimit   int     // Max content items embedded per indexer pass
	BackfillSeconds int     // Indexer pass interval in seconds

	// Other configurations
	Mode    string // dev, demo, prod
	Data    string // Data directory (sqlite database location)
	Driver  string // sqlite, postgres
	DSN     string
	Version string
}

// Provider default configurations for embeddings.
// Used when EMBEDDING_BASE_URL is not explicitly set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL    string
	Model      string
	Dimensions int
}{
	"openai": {
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	},
	"siliconflow": {
		BaseURL:    "https://api.siliconflow.cn/v1",
		Model:      "BAAI/bge-m3",
		Dimensions: 1024,
	},
	"dashscope": {
		BaseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:      "text-embedding-v3",
		Dimensions: 1024,
	},
	"ollama": {
		BaseURL:    "http://localhost:11434/v1",
		Model:      "nomic-embed-text",
		Dimensions: 768,
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if an embedding API key is configured.
// Ollama runs without a key, so an explicit provider counts too.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("ORBITVIEW_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingAPIKey = getEnvOrDefault("ORBITVIEW_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("ORBITVIEW_EMBEDDING_BASE_URL", "")
	p.EmbeddingModel = getEnvOrDefault("ORBITVIEW_EMBEDDING_MODEL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("ORBITVIEW_EMBEDDING_DIMENSIONS", 0)
	p.EmbeddingTimeout = getEnvOrDefaultInt("ORBITVIEW_EMBEDDING_TIMEOUT_SECONDS", 30)

	if _, ok := embeddingProviderDefaults[p.EmbeddingProvider]; !ok {
		slog.Warn("unknown embedding provider, using default: openai", "provider", p.EmbeddingProvider)
		p.EmbeddingProvider = "openai"
	}
	if defaults, ok := embeddingProviderDefaults[p.EmbeddingProvider]; ok {
		if p.EmbeddingBaseURL == "" {
			p.EmbeddingBaseURL = defaults.BaseURL
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = defaults.Model
		}
		if p.EmbeddingDimensions == 0 {
			p.EmbeddingDimensions = defaults.Dimensions
		}
	}

	p.MatchMinScore = getEnvOrDefaultFloat("ORBITVIEW_MATCH_MIN_SCORE", 0.7)
	p.RelevanceTopK = getEnvOrDefaultInt("ORBITVIEW_RELEVANCE_TOP_K", 5)
	p.BackfillLimit = getEnvOrDefaultInt("ORBITVIEW_BACKFILL_LIMIT", 100)
	p.BackfillSeconds = getEnvOrDefaultInt("ORBITVIEW_BACKFILL_INTERVAL_SECONDS", 60)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported db driver: %s", p.Driver)
	}

	if p.MatchMinScore < -1 || p.MatchMinScore > 1 {
		return errors.Errorf("match min score out of range [-1, 1]: %f", p.MatchMinScore)
	}
	if p.RelevanceTopK < 1 {
		return errors.Errorf("relevance top k must be >= 1: %d", p.RelevanceTopK)
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("orbitview_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	} else if p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
