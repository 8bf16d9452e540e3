package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/adapters/orchestrator"
	"github.com/wbernardo-star/listen-client-mobile/adapters/stt"
	"github.com/wbernardo-star/listen-client-mobile/adapters/tts"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
	"github.com/wbernardo-star/listen-client-mobile/internal/api"
	"github.com/wbernardo-star/listen-client-mobile/internal/config"
	"github.com/wbernardo-star/listen-client-mobile/internal/staging"
	"github.com/wbernardo-star/listen-client-mobile/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger settings depend on config; fall back to a production logger to report
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx := context.Background()
	var closers []io.Closer

	// Initialize adapters
	sttLogger := logger.Named("stt")
	sttProviders, sttClosers := buildSTTProviders(ctx, cfg, sttLogger)
	closers = append(closers, sttClosers...)
	sttStage, err := stt.NewStage(sttLogger, sttProviders...)
	if err != nil {
		logger.Fatal("Failed to create transcription stage", zap.Error(err))
	}

	ttsLogger := logger.Named("tts")
	ttsStage, err := tts.NewStage(ttsLogger, buildTTSProviders(cfg, ttsLogger)...)
	if err != nil {
		logger.Fatal("Failed to create synthesis stage", zap.Error(err))
	}

	orchestratorClient, err := orchestrator.NewClient(orchestrator.Config{
		URL:     cfg.OrchestratorURL,
		APIKey:  cfg.OrchestratorAPIKey,
		Timeout: cfg.OrchestratorTimeout,
	}, logger.Named("orchestrator"))
	if err != nil {
		logger.Fatal("Failed to create orchestrator client", zap.Error(err))
	}

	extractor, err := orchestrator.NewReplyExtractor()
	if err != nil {
		logger.Fatal("Failed to create reply extractor", zap.Error(err))
	}

	stager, err := staging.NewStager(cfg.AudioStagingDir, logger)
	if err != nil {
		logger.Fatal("Failed to create audio stager", zap.Error(err))
	}

	// Initialize usecase services
	relayService := usecase.NewRelayService(stager, sttStage, orchestratorClient, extractor, ttsStage,
		usecase.CallerProfile{
			Channel:   cfg.OrchestratorChannel,
			Locale:    cfg.OrchestratorLocale,
			Tenant:    cfg.OrchestratorTenant,
			ClientApp: cfg.OrchestratorClientApp,
		}, logger.Named("relay"))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	handler := api.NewRelayHandler(relayService, api.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
	}, logger.Named("api"))
	api.InitRoutes(e, handler, api.RouteOptions{
		StaticDir:    cfg.StaticDir,
		MaxBodySize:  cfg.MaxAudioSize,
		STTProviders: sttStage.Providers(),
		TTSProviders: ttsStage.Providers(),
	}, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice relay started",
		zap.String("port", cfg.Port),
		zap.Strings("sttProviders", sttStage.Providers()),
		zap.Strings("ttsProviders", ttsStage.Providers()),
		zap.String("stagingDir", stager.Dir()))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = e.Shutdown(shutdownCtx)
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	if err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildSTTProviders returns the transcription providers in fallback order
func buildSTTProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]repositories.SpeechToText, []io.Closer) {
	var providers []repositories.SpeechToText
	var closers []io.Closer

	if cfg.ElevenLabsEnabled() {
		elevenLabs, err := stt.NewElevenLabsSTT(stt.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			APIBaseURL: cfg.ElevenLabsBaseURL,
			ModelID:    cfg.ElevenLabsSTTModelID,
			Timeout:    cfg.STTTimeout,
		}, logger)
		if err != nil {
			logger.Warn("ElevenLabs STT disabled", zap.Error(err))
		} else {
			providers = append(providers, elevenLabs)
		}
	} else {
		logger.Info("ElevenLabs STT disabled: no API key")
	}

	whisper, err := stt.NewWhisperSTT(stt.WhisperConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAISTTModel,
		Timeout: cfg.STTTimeout,
	}, logger)
	if err != nil {
		logger.Warn("OpenAI Whisper STT disabled", zap.Error(err))
	} else {
		providers = append(providers, whisper)
	}

	if cfg.GoogleSpeechEnabled {
		google, err := stt.NewGoogleSpeechToText(ctx, cfg.OrchestratorLocale, logger)
		if err != nil {
			logger.Warn("Google Speech STT disabled", zap.Error(err))
		} else {
			providers = append(providers, google)
			closers = append(closers, google)
		}
	}

	if cfg.GeminiEnabled() {
		gemini, err := stt.NewGeminiSTT(ctx, stt.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.STTTimeout,
		}, logger)
		if err != nil {
			logger.Warn("Gemini STT disabled", zap.Error(err))
		} else {
			providers = append(providers, gemini)
		}
	}

	return providers, closers
}

// buildTTSProviders returns the synthesis providers in fallback order
func buildTTSProviders(cfg *config.Config, logger *zap.Logger) []repositories.TextToSpeech {
	var providers []repositories.TextToSpeech

	if cfg.ElevenLabsEnabled() {
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			APIBaseURL: cfg.ElevenLabsBaseURL,
			VoiceID:    cfg.ElevenLabsVoiceID,
			ModelID:    cfg.ElevenLabsTTSModelID,
			Timeout:    cfg.TTSTimeout,
		}, logger)
		if err != nil {
			logger.Warn("ElevenLabs TTS disabled", zap.Error(err))
		} else {
			providers = append(providers, elevenLabs)
		}
	} else {
		logger.Info("ElevenLabs TTS disabled: no API key")
	}

	openAI, err := tts.NewOpenAITTS(tts.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAITTSModel,
		Voice:   cfg.OpenAITTSVoice,
		Timeout: cfg.TTSTimeout,
	}, logger)
	if err != nil {
		logger.Warn("OpenAI TTS disabled", zap.Error(err))
	} else {
		providers = append(providers, openAI)
	}

	return providers
}
