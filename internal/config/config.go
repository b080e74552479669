package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" toml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" toml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
}

// ChunkerConfig configures how the corpus is split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" toml:"type"`
	Size              int    `yaml:"size" toml:"size"`
	Overlap           int    `yaml:"overlap" toml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" toml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences" toml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type" toml:"type"`
	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty" toml:"sqlite,omitempty"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty" toml:"qdrant,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" toml:"postgres,omitempty"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" toml:"url"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	Collection  string `yaml:"collection" toml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

// IndexConfig controls what happens to an existing index on startup.
type IndexConfig struct {
	Policy string `yaml:"policy" toml:"policy"`
}

// GenerationConfig configures the answer model and prompt assembly.
type GenerationConfig struct {
	Model           string  `yaml:"model" toml:"model"`
	Mode            string  `yaml:"mode" toml:"mode"`
	BaseURL         string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env" toml:"api_key_env"`
	Template        string  `yaml:"template" toml:"template"`
	MaxContextChars int     `yaml:"max_context_chars" toml:"max_context_chars"`
	MaxPromptTokens int     `yaml:"max_prompt_tokens" toml:"max_prompt_tokens"`
	MaxTokens       int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature     float32 `yaml:"temperature" toml:"temperature"`
	K               int     `yaml:"k" toml:"k"`
	TimeoutSecs     int     `yaml:"timeout_secs" toml:"timeout_secs"`
}

type FuzzyConfig struct {
	QAFile string  `yaml:"qa_file" toml:"qa_file"`
	Cutoff float64 `yaml:"cutoff" toml:"cutoff"`
}

// WebConfig lists pages fetched into the corpus at startup.
type WebConfig struct {
	URLs        []string `yaml:"urls" toml:"urls"`
	TimeoutSecs int      `yaml:"timeout_secs" toml:"timeout_secs"`
}

// ConfluenceConfig identifies a wiki space loaded into the corpus. The API
// token is only read from the environment.
type ConfluenceConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	Username    string `yaml:"username" toml:"username"`
	SpaceKey    string `yaml:"space_key" toml:"space_key"`
	PageSize    int    `yaml:"page_size" toml:"page_size"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	APIToken    string `yaml:"-" toml:"-"`
}

// Enabled reports whether a space is configured.
func (c ConfluenceConfig) Enabled() bool { return c.BaseURL != "" && c.SpaceKey != "" }

// SlackConfig holds the Socket Mode credentials, read from the environment.
type SlackConfig struct {
	Debug    bool   `yaml:"debug" toml:"debug"`
	BotToken string `yaml:"-" toml:"-"`
	AppToken string `yaml:"-" toml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" toml:"type"`
	MaxSentences int    `yaml:"max_sentences" toml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Bot         string            `yaml:"bot" toml:"bot"`
	DataDir     string            `yaml:"data_dir" toml:"data_dir"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Index       IndexConfig       `yaml:"index" toml:"index"`
	Generation  GenerationConfig  `yaml:"generation" toml:"generation"`
	Fuzzy       FuzzyConfig       `yaml:"fuzzy" toml:"fuzzy"`
	Web         WebConfig         `yaml:"web" toml:"web"`
	Confluence  ConfluenceConfig  `yaml:"confluence" toml:"confluence"`
	Slack       SlackConfig       `yaml:"slack" toml:"slack"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" toml:"telemetry"`
	Summarizer  SummarizerConfig  `yaml:"summarizer" toml:"summarizer"`
}

// Load reads a config from path: defaults, then the file, then environment
// overrides. A missing file yields the defaults. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/qabot/config.yaml.
// If neither exists, it writes defaults to ~/.config/qabot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(cfg)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the enumerated settings.
func (c *AppConfig) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %s)", field, v, strings.Join(allowed, ", ")))
	}
	oneOf("bot", c.Bot, "rag", "fuzzy")
	oneOf("chunker.type", c.Chunker.Type, "character", "sentence")
	oneOf("embedder.type", c.Embedder.Type, "tfidf", "openai")
	oneOf("vector_store.type", c.VectorStore.Type, "sqlite", "memory", "qdrant", "postgres")
	oneOf("index.policy", c.Index.Policy, "rebuild", "fingerprint")
	oneOf("generation.mode", c.Generation.Mode, "chat", "completion")
	oneOf("logging.format", c.Logging.Format, "text", "json")
	if c.Chunker.Type == "character" && c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker: overlap %d must be smaller than size %d", c.Chunker.Overlap, c.Chunker.Size))
	}
	if c.VectorStore.Type == "postgres" && (c.VectorStore.Postgres == nil || c.VectorStore.Postgres.DSN == "") {
		errs = append(errs, errors.New("vector_store.postgres.dsn is required"))
	}
	return errors.Join(errs...)
}

func decode(path string, data []byte, cfg *AppConfig) error {
	if isTOML(path) {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qabot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Bot:         "rag",
		DataDir:     "data",
		Chunker:     ChunkerConfig{Type: "character", Size: 1000, Overlap: 200, SentencesPerChunk: 5, OverlapSentences: 1},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "sqlite", SQLite: &SQLiteConfig{Path: "vectorstore.db"}},
		Index:       IndexConfig{Policy: "rebuild"},
		Generation: GenerationConfig{
			Model:           "gpt-4o-mini",
			Mode:            "chat",
			APIKeyEnv:       "OPENAI_API_KEY",
			MaxContextChars: 512,
			MaxPromptTokens: 512,
			MaxTokens:       256,
			K:               2,
			TimeoutSecs:     60,
		},
		Fuzzy:      FuzzyConfig{QAFile: "qa_data.json", Cutoff: 0.6},
		Web:        WebConfig{TimeoutSecs: 30},
		Confluence: ConfluenceConfig{PageSize: 25, TimeoutSecs: 30},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Telemetry:  TelemetryConfig{ServiceName: "qabot"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Bot == "" {
		cfg.Bot = def.Bot
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = def.Chunker.SentencesPerChunk
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.VectorStore.Type == "sqlite" {
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.Path == "" {
			cfg.VectorStore.SQLite.Path = def.VectorStore.SQLite.Path
		}
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Index.Policy == "" {
		cfg.Index.Policy = def.Index.Policy
	}
	g := &cfg.Generation
	if g.Model == "" {
		g.Model = def.Generation.Model
	}
	if g.Mode == "" {
		g.Mode = def.Generation.Mode
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = def.Generation.APIKeyEnv
	}
	if g.MaxContextChars == 0 {
		g.MaxContextChars = def.Generation.MaxContextChars
	}
	if g.MaxPromptTokens == 0 {
		g.MaxPromptTokens = def.Generation.MaxPromptTokens
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = def.Generation.MaxTokens
	}
	if g.K == 0 {
		g.K = def.Generation.K
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if cfg.Fuzzy.QAFile == "" {
		cfg.Fuzzy.QAFile = def.Fuzzy.QAFile
	}
	if cfg.Fuzzy.Cutoff == 0 {
		cfg.Fuzzy.Cutoff = def.Fuzzy.Cutoff
	}
	if cfg.Web.TimeoutSecs == 0 {
		cfg.Web.TimeoutSecs = def.Web.TimeoutSecs
	}
	if cfg.Confluence.PageSize == 0 {
		cfg.Confluence.PageSize = def.Confluence.PageSize
	}
	if cfg.Confluence.TimeoutSecs == 0 {
		cfg.Confluence.TimeoutSecs = def.Confluence.TimeoutSecs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = def.Summarizer.MaxSentences
	}
}

// applyEnv lets the environment override secrets and a few switches.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_APP_TOKEN"); v != "" {
		cfg.Slack.AppToken = v
	}
	if v := os.Getenv("CONFLUENCE_URL"); v != "" {
		cfg.Confluence.BaseURL = v
	}
	if v := os.Getenv("CONFLUENCE_USERNAME"); v != "" {
		cfg.Confluence.Username = v
	}
	if v := os.Getenv("CONFLUENCE_API_TOKEN"); v != "" {
		cfg.Confluence.APIToken = v
	}
	if v := os.Getenv("CONFLUENCE_SPACE_KEY"); v != "" {
		cfg.Confluence.SpaceKey = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" && cfg.VectorStore.Qdrant != nil {
		cfg.VectorStore.Qdrant.APIKey = v
	}
	if v := os.Getenv("QABOT_POSTGRES_DSN"); v != "" {
		if cfg.VectorStore.Postgres == nil {
			cfg.VectorStore.Postgres = &PostgresConfig{}
		}
		cfg.VectorStore.Postgres.DSN = v
	}
	if v := os.Getenv("QABOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QABOT_TELEMETRY_ENABLED"); v == "true" || v == "1" {
		cfg.Telemetry.Enabled = true
	}
}
