package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Переменные окружения с ключами. Подставляются в config.yaml через ${VAR}
// и используются напрямую, если конфиг не указан.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvOpenAIModel = "OPENAI_MODEL"
	EnvWeatherKey  = "OPENWEATHERMAP_API_KEY"
	EnvS3Access    = "S3_ACCESS_KEY"
	EnvS3Secret    = "S3_SECRET_KEY"
)

// Имена инструментов, которые знает конфигурация.
const (
	ToolSearch       = "search"
	ToolWeather      = "weather"
	ToolOCR          = "ocr"
	ToolPDFExtractor = "pdf_extractor"
	ToolPDFIngestion = "pdf_ingestion"
)

// AppConfig: корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models          ModelsConfig          `yaml:"models"`
	Tools           map[string]ToolConfig `yaml:"tools"`
	Weather         WeatherConfig         `yaml:"weather"`
	Search          SearchConfig          `yaml:"search"`
	Memory          MemoryConfig          `yaml:"memory"`
	Extraction      ExtractionConfig      `yaml:"extraction"`
	ImageProcessing ImageProcConfig       `yaml:"image_processing"`
	S3              S3Config              `yaml:"s3"`
	Storage         StorageConfig         `yaml:"storage"`
	App             AppSpecific           `yaml:"app"`
}

// ModelsConfig: настройки AI моделей.
type ModelsConfig struct {
	DefaultChat    string              `yaml:"default_chat"`    // Алиас для агента и чата
	DefaultVision  string              `yaml:"default_vision"`  // Алиас для OCR (пусто = DefaultChat)
	DefaultSummary string              `yaml:"default_summary"` // Алиас для summary memory (пусто = DefaultChat)
	Definitions    map[string]ModelDef `yaml:"definitions"`
}

// ModelDef: параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "openai", "zai", "deepseek"
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // "60s", "1m"
}

// ToolConfig: настройки одного инструмента.
type ToolConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// WeatherConfig: OpenWeatherMap.
type WeatherConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Units         string `yaml:"units"`          // metric, imperial, standard
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в минуту
	BurstLimit    int    `yaml:"burst_limit"`    // Burst для rate limiter
	RetryAttempts int    `yaml:"retry_attempts"` // Количество попыток
	Timeout       string `yaml:"timeout"`        // "15s"
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *WeatherConfig) GetDefaults() WeatherConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "https://api.openweathermap.org"
	}
	if result.Units == "" {
		result.Units = "metric"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 60
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 1
	}
	if result.RetryAttempts <= 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "15s"
	}
	return result
}

// SearchConfig: веб-поиск через DuckDuckGo lite.
type SearchConfig struct {
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
	Timeout    string `yaml:"timeout"`
	UserAgent  string `yaml:"user_agent"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *SearchConfig) GetDefaults() SearchConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "https://lite.duckduckgo.com/lite/"
	}
	if result.MaxResults == 0 {
		result.MaxResults = 5
	}
	if result.Timeout == "" {
		result.Timeout = "15s"
	}
	if result.UserAgent == "" {
		result.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return result
}

// Стратегии памяти диалога.
const (
	MemoryBuffer  = "buffer"
	MemoryWindow  = "window"
	MemorySummary = "summary"
)

// MemoryConfig: стратегия памяти диалога.
type MemoryConfig struct {
	Strategy   string `yaml:"strategy"`    // buffer | window | summary
	WindowSize int    `yaml:"window_size"` // Количество последних реплик для window
}

// ExtractionConfig: настройки извлечения из документов.
type ExtractionConfig struct {
	OutputDir     string `yaml:"output_dir"`
	ExtractImages bool   `yaml:"extract_images"`
}

// ImageProcConfig: настройки обработки изображений перед OCR.
type ImageProcConfig struct {
	MaxWidth int `yaml:"max_width"`
	Quality  int `yaml:"quality"`
}

// S3Config: объектное хранилище для s3:// входов и зеркала результатов.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"` // Префикс для выгрузки результатов
}

// StorageConfig: локальное хранение транскриптов чата.
type StorageConfig struct {
	TranscriptPath string `yaml:"transcript_path"` // sqlite файл, пусто = без сохранения
}

// AppSpecific: общие настройки приложения.
type AppSpecific struct {
	Debug         bool   `yaml:"debug"`
	Verbose       bool   `yaml:"verbose"`
	LogDir        string `yaml:"log_dir"`
	MaxIterations int    `yaml:"max_iterations"`
	SystemPrompt  string `yaml:"system_prompt"`
}

// Load читает .env, затем YAML файл, подставляет ENV переменные и
// возвращает провалидированную структуру.
//
// Пустой path: конфигурация целиком из окружения (Default).
func Load(path string) (*AppConfig, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Read делает то же, что Load, но без Validate. Нужен утилитам,
// которым не нужна модель (разбор PDF).
func Read(path string) (*AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(rawBytes)
}

// Parse подставляет ENV переменные в YAML и применяет дефолты.
// Валидацию не выполняет.
func Parse(raw []byte) (*AppConfig, error) {
	contentWithEnv := os.ExpandEnv(string(raw))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default собирает конфигурацию только из переменных окружения.
func Default() *AppConfig {
	model := os.Getenv(EnvOpenAIModel)
	if model == "" {
		model = "gpt-4o"
	}

	cfg := &AppConfig{
		Models: ModelsConfig{
			DefaultChat: model,
			Definitions: map[string]ModelDef{
				model: {
					Provider:  "openai",
					ModelName: model,
					APIKey:    os.Getenv(EnvOpenAIKey),
				},
			},
		},
		Weather: WeatherConfig{APIKey: os.Getenv(EnvWeatherKey)},
		Extraction: ExtractionConfig{
			ExtractImages: true,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() {
	c.Weather = c.Weather.GetDefaults()
	c.Search = c.Search.GetDefaults()

	if c.Memory.Strategy == "" {
		c.Memory.Strategy = MemoryBuffer
	}
	if c.Memory.WindowSize <= 0 {
		c.Memory.WindowSize = 6
	}
	if c.ImageProcessing.Quality == 0 {
		c.ImageProcessing.Quality = 85
	}
	if c.App.MaxIterations == 0 {
		c.App.MaxIterations = 10
	}
	if c.Tools == nil {
		c.Tools = make(map[string]ToolConfig)
	}
}

// Validate проверяет обязательные поля. Ключ API модели проверяется
// сразу, чтобы не падать на первом сетевом вызове с 401.
func (c *AppConfig) Validate() error {
	if c.Models.DefaultChat == "" {
		return fmt.Errorf("models.default_chat is required")
	}
	chat, ok := c.Models.Definitions[c.Models.DefaultChat]
	if !ok {
		return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
	}
	if chat.APIKey == "" {
		return fmt.Errorf("models.definitions.%s.api_key is empty: set %s in the environment or .env",
			c.Models.DefaultChat, EnvOpenAIKey)
	}
	for _, alias := range []string{c.Models.DefaultVision, c.Models.DefaultSummary} {
		if alias == "" {
			continue
		}
		if _, ok := c.Models.Definitions[alias]; !ok {
			return fmt.Errorf("model '%s' is not defined in definitions", alias)
		}
	}

	switch c.Memory.Strategy {
	case MemoryBuffer, MemoryWindow, MemorySummary:
	default:
		return fmt.Errorf("memory.strategy must be one of buffer, window, summary, got '%s'", c.Memory.Strategy)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when s3.enabled")
		}
		if c.S3.Endpoint == "" {
			return fmt.Errorf("s3.endpoint is required when s3.enabled")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("s3 credentials are empty: set %s and %s in the environment or .env",
				EnvS3Access, EnvS3Secret)
		}
	}
	return nil
}

// ValidateTools проверяет ключи для включённых инструментов.
// Вызывается только приложениями, которые строят инструменты.
func (c *AppConfig) ValidateTools() error {
	if c.IsToolEnabled(ToolWeather) && c.Weather.APIKey == "" {
		return fmt.Errorf("weather.api_key is empty: set %s in the environment or .env, or disable tools.weather",
			EnvWeatherKey)
	}
	return nil
}

// IsToolEnabled: инструмент включён, если он не выключен явно в tools.
func (c *AppConfig) IsToolEnabled(name string) bool {
	tc, ok := c.Tools[name]
	if !ok {
		return true
	}
	return tc.Enabled
}

// ToolTimeout возвращает timeout инструмента или 0 (дефолт исполнителя).
func (c *AppConfig) ToolTimeout(name string) time.Duration {
	return c.Tools[name].Timeout
}


// VisionAlias возвращает алиас модели для OCR.
func (c *AppConfig) VisionAlias() string {
	if c.Models.DefaultVision != "" {
		return c.Models.DefaultVision
	}
	return c.Models.DefaultChat
}

// SummaryAlias возвращает алиас модели для summary memory.
func (c *AppConfig) SummaryAlias() string {
	if c.Models.DefaultSummary != "" {
		return c.Models.DefaultSummary
	}
	return c.Models.DefaultChat
}

// loadDotEnv подгружает .env из текущей директории, если он есть.
// Уже выставленные переменные окружения не перезаписываются.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}
