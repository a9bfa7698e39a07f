package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"VoxCliente"`
	AppVersion string `env:"APP_VERSION" env-default:"0.1.0"`
	Port       int    `env:"PORT" env-default:"8000"`
	GRPCPort   int    `env:"GRPC_PORT" env-default:"0"`

	Debug    bool   `env:"DEBUG" env-default:"false"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	LogJSON  bool   `env:"LOG_JSON" env-default:"false"`
	LogDir   string `env:"LOG_DIR" env-default:"logs"`

	HTTP          HTTPConfig
	Upload        UploadConfig
	Files         FilesConfig
	Templates     TemplatesConfig
	Summarization SummarizationConfig

	AssemblyAI AssemblyAIConfig `env-prefix:"ASSEMBLYAI_"`
	OpenAI     OpenAIConfig     `env-prefix:"OPENAI_"`
	Gemini     GeminiConfig     `env-prefix:"GEMINI_"`
	Resend     ResendConfig     `env-prefix:"RESEND_"`
	PostHog    PostHogConfig    `env-prefix:"POSTHOG_"`

	DatabaseURL string `env:"DATABASE_URL"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:8080"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" env-default:"60s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" env-default:"15m"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" env-default:"60s"`
	StaticDir      string        `env:"STATIC_DIR"`
}

type UploadConfig struct {
	MaxFileSizeMB       int64    `env:"MAX_FILE_SIZE_MB" env-default:"100"`
	EnforceAudioFormats bool     `env:"ENFORCE_AUDIO_FORMATS" env-default:"false"`
	AllowedAudioFormats []string `env:"ALLOWED_AUDIO_FORMATS" env-separator:"," env-default:"wav,mp3,m4a"`
	ScratchDir          string   `env:"UPLOAD_DIR"`
}

type FilesConfig struct {
	Dir string        `env:"FILES_DIR" env-default:"uploads/temp"`
	TTL time.Duration `env:"FILE_TTL" env-default:"1h"`
}

type TemplatesConfig struct {
	PromptFile        string `env:"PROMPT_FILE"`
	EmailTemplateFile string `env:"EMAIL_TEMPLATE_FILE"`
	VocabularyFile    string `env:"VOCABULARY_FILE"`
	Watch             bool   `env:"WATCH_TEMPLATES" env-default:"false"`
}

type AssemblyAIConfig struct {
	APIKey        string        `env:"API_KEY"`
	BaseURL       string        `env:"BASE_URL" env-default:"https://api.assemblyai.com"`
	Timeout       time.Duration `env:"TIMEOUT" env-default:"10m"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" env-default:"3s"`
	RatePerMinute float64       `env:"RATE_PER_MINUTE" env-default:"0.0045"`
}

type SummarizationConfig struct {
	Provider        string  `env:"SUMMARIZATION_PROVIDER" env-default:"openai"`
	InputRatePer1K  float64 `env:"INPUT_RATE_PER_1K" env-default:"0.00025"`
	OutputRatePer1K float64 `env:"OUTPUT_RATE_PER_1K" env-default:"0.002"`
}

type OpenAIConfig struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"BASE_URL" env-default:"https://api.openai.com/v1"`
	Model   string        `env:"MODEL" env-default:"gpt-5-mini"`
	Timeout time.Duration `env:"TIMEOUT" env-default:"2m"`
}

type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" env-default:"gemini-2.5-flash"`
}

type ResendConfig struct {
	APIKey    string        `env:"API_KEY"`
	BaseURL   string        `env:"BASE_URL" env-default:"https://api.resend.com"`
	FromEmail string        `env:"FROM_EMAIL" env-default:"actas@actas.voxcliente.com"`
	FromName  string        `env:"FROM_NAME" env-default:"VoxCliente"`
	ReplyTo   string        `env:"REPLY_TO"`
	Timeout   time.Duration `env:"TIMEOUT" env-default:"30s"`
	CostUSD   float64       `env:"EMAIL_COST_USD" env-default:"0.0004"`
}

type PostHogConfig struct {
	APIKey  string        `env:"API_KEY"`
	Host    string        `env:"HOST" env-default:"https://app.posthog.com"`
	Timeout time.Duration `env:"TIMEOUT" env-default:"10s"`
}

// MaxFileSizeBytes is the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.Upload.MaxFileSizeMB * 1024 * 1024
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	cfg.Summarization.Provider = strings.ToLower(strings.TrimSpace(cfg.Summarization.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.Upload.MaxFileSizeMB)
	}
	if c.Files.TTL <= 0 {
		return fmt.Errorf("FILE_TTL must be positive, got %s", c.Files.TTL)
	}
	switch c.Summarization.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown SUMMARIZATION_PROVIDER %q", c.Summarization.Provider)
	}
	return nil
}
