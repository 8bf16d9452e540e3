// Package config loads the relay configuration once at process start.
//
// Stages receive the values they need at construction and never read the
// environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultPort                  = "8080"
	DefaultOrchestratorLocale    = "en-US"
	DefaultOrchestratorTenant    = "default-tenant"
	DefaultOrchestratorClientApp = "voice-widget"
	DefaultOrchestratorChannel   = "web_widget"
	DefaultElevenLabsBaseURL     = "https://api.elevenlabs.io/v1"
	DefaultElevenLabsVoiceID     = "EXAVITQu4vr4xnSDxMaL"
	DefaultElevenLabsTTSModelID  = "eleven_multilingual_v2"
	DefaultElevenLabsSTTModelID  = "scribe_v1"
	DefaultOpenAISTTModel        = "whisper-1"
	DefaultOpenAITTSModel        = "gpt-4o-mini-tts"
	DefaultOpenAITTSVoice        = "alloy"
	DefaultGeminiModel           = "gemini-2.0-flash"
	DefaultMaxAudioSize          = "25M"
	DefaultCookieName            = "voice_user_id"

	DefaultSTTTimeout          = 60 * time.Second
	DefaultOrchestratorTimeout = 30 * time.Second
	DefaultTTSTimeout          = 60 * time.Second
)

// Config is the immutable process configuration
type Config struct {
	Port   string
	AppEnv string

	// Orchestrator (required: URL, APIKey)
	OrchestratorURL       string
	OrchestratorAPIKey    string
	OrchestratorLocale    string
	OrchestratorTenant    string
	OrchestratorClientApp string
	OrchestratorChannel   string
	OrchestratorTimeout   time.Duration

	// OpenAI (required: APIKey)
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAISTTModel string
	OpenAITTSModel string
	OpenAITTSVoice string

	// ElevenLabs (optional; empty key disables both ElevenLabs providers)
	ElevenLabsAPIKey     string
	ElevenLabsBaseURL    string
	ElevenLabsVoiceID    string
	ElevenLabsTTSModelID string
	ElevenLabsSTTModelID string

	// Optional extra STT providers
	GoogleSpeechEnabled bool
	GeminiAPIKey        string
	GeminiModel         string

	STTTimeout time.Duration
	TTSTimeout time.Duration

	// HTTP surface
	AudioStagingDir string
	MaxAudioSize    string
	CookieName      string
	CookieSecure    bool
	StaticDir       string
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		Port:   env.get("PORT", DefaultPort),
		AppEnv: env.get("APP_ENV", "production"),

		OrchestratorURL:       env.get("ORCHESTRATOR_URL", ""),
		OrchestratorAPIKey:    env.get("ORCHESTRATOR_API_KEY", ""),
		OrchestratorLocale:    env.get("ORCHESTRATOR_LOCALE", DefaultOrchestratorLocale),
		OrchestratorTenant:    env.get("ORCHESTRATOR_TENANT", DefaultOrchestratorTenant),
		OrchestratorClientApp: env.get("ORCHESTRATOR_CLIENT_APP", DefaultOrchestratorClientApp),
		OrchestratorChannel:   env.get("ORCHESTRATOR_CHANNEL", DefaultOrchestratorChannel),
		OrchestratorTimeout:   env.getDuration("ORCHESTRATOR_TIMEOUT", DefaultOrchestratorTimeout),

		OpenAIAPIKey:   env.get("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  env.get("OPENAI_BASE_URL", ""),
		OpenAISTTModel: env.get("OPENAI_STT_MODEL", DefaultOpenAISTTModel),
		OpenAITTSModel: env.get("OPENAI_TTS_MODEL", DefaultOpenAITTSModel),
		OpenAITTSVoice: env.get("OPENAI_TTS_VOICE", DefaultOpenAITTSVoice),

		ElevenLabsAPIKey:     env.get("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:    env.get("ELEVENLABS_API_BASE_URL", DefaultElevenLabsBaseURL),
		ElevenLabsVoiceID:    env.get("ELEVENLABS_VOICE_ID", DefaultElevenLabsVoiceID),
		ElevenLabsTTSModelID: env.get("ELEVENLABS_TTS_MODEL_ID", DefaultElevenLabsTTSModelID),
		ElevenLabsSTTModelID: env.get("ELEVENLABS_STT_MODEL_ID", DefaultElevenLabsSTTModelID),

		GoogleSpeechEnabled: env.getBool("GOOGLE_SPEECH_ENABLED", false),
		GeminiAPIKey:        env.get("GEMINI_API_KEY", ""),
		GeminiModel:         env.get("GEMINI_MODEL", DefaultGeminiModel),

		STTTimeout: env.getDuration("STT_TIMEOUT", DefaultSTTTimeout),
		TTSTimeout: env.getDuration("TTS_TIMEOUT", DefaultTTSTimeout),

		AudioStagingDir: env.get("AUDIO_STAGING_DIR", ""),
		MaxAudioSize:    env.get("MAX_AUDIO_SIZE", DefaultMaxAudioSize),
		CookieName:      env.get("COOKIE_NAME", DefaultCookieName),
		CookieSecure:    env.getBool("COOKIE_SECURE", false),
		StaticDir:       env.get("STATIC_DIR", ""),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing mandatory setting at once
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.OrchestratorURL == "" {
		missing = append(missing, "ORCHESTRATOR_URL")
	}
	if c.OrchestratorAPIKey == "" {
		missing = append(missing, "ORCHESTRATOR_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ElevenLabsEnabled reports whether the ElevenLabs providers can be used
func (c *Config) ElevenLabsEnabled() bool {
	return c.ElevenLabsAPIKey != ""
}

// GeminiEnabled reports whether the Gemini STT provider can be used
func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// IsDevelopment switches logging to the development encoder
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) get(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *envReader) getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

func (r *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}
