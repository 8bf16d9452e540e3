package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/internal/staging"
	"github.com/wbernardo-star/listen-client-mobile/usecase"
)

const (
	identityCookieMaxAge = 365 * 24 * time.Hour
	userIDContextKey     = "voiceUserID"
)

// Relayer runs one voice turn
type Relayer interface {
	Process(ctx context.Context, req usecase.RelayRequest) (*usecase.RelayResult, error)
}

// CookieConfig controls the durable identity cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// RelayHandler serves the voice endpoint
type RelayHandler struct {
	relay  Relayer
	cookie CookieConfig
	logger *zap.Logger
}

// NewRelayHandler creates a new relay handler
func NewRelayHandler(relay Relayer, cookie CookieConfig, logger *zap.Logger) *RelayHandler {
	if cookie.Name == "" {
		cookie.Name = "voice_user_id"
	}
	return &RelayHandler{
		relay:  relay,
		cookie: cookie,
		logger: logger,
	}
}

// IssueIdentity sets the identity cookie. It must run ahead of the body limit.
func (h *RelayHandler) IssueIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h.issueIdentity(c)
		return next(c)
	}
}

// Voice handles POST /api/voice
func (h *RelayHandler) Voice(c echo.Context) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	logger := h.logger.With(zap.String("requestID", requestID))

	userID, _ := c.Get(userIDContextKey).(string)
	if userID == "" {
		userID = h.issueIdentity(c)
	}

	// Parse once up front so an oversized body surfaces as 413, not as a missing part
	if _, err := c.MultipartForm(); errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		logger.Warn("Audio upload exceeds the body limit", zap.Error(err))
		return err
	}
	session := entities.ResolveSession(userID, c.FormValue(formFieldSessionID))

	fileHeader, err := c.FormFile(formFieldAudio)
	if err != nil {
		if h.hasBareAudioField(c) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorEmptyFilename})
		}
		logger.Debug("Request has no audio part", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorNoAudio})
	}
	if strings.TrimSpace(fileHeader.Filename) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorEmptyFilename})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open audio part", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorAudioStagingFailed})
	}
	defer file.Close()

	result, err := h.relay.Process(c.Request().Context(), usecase.RelayRequest{
		RequestID: requestID,
		Upload: staging.Upload{
			Reader:      file,
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		},
		Session: session,
	})
	if err != nil {
		logger.Error("Voice turn failed", zap.Error(err))
		if errors.Is(err, usecase.ErrAudioStaging) {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorAudioStagingFailed})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}

	logger.Info("Voice turn served",
		zap.String("outcome", string(result.Outcome)),
		zap.String("haltedAt", string(result.Trace.HaltedAt)),
		zap.Int("steps", len(result.Trace.Steps)),
		zap.Duration("elapsed", result.Trace.CompletedAt.Sub(result.Trace.StartedAt)))

	switch result.Outcome {
	case usecase.OutcomeEmptyTranscript:
		return c.JSON(http.StatusOK, EmptyTranscriptionResponse{
			Error:       ErrorEmptyTranscription,
			STTProvider: nullable(result.Transcript.Provider),
		})

	case usecase.OutcomeOrchestratorFailed:
		return c.JSON(http.StatusBadGateway, OrchestratorFailureResponse{
			Error:       ErrorOrchestratorCall,
			Details:     result.Reply.Failure,
			STTProvider: nullable(result.Transcript.Provider),
		})
	}

	return c.JSON(http.StatusOK, newVoiceResponse(result))
}

func newVoiceResponse(result *usecase.RelayResult) VoiceResponse {
	resp := VoiceResponse{
		UserText:    result.Transcript.Text,
		ReplyText:   result.ReplyText,
		STTProvider: nullable(result.Transcript.Provider),
		UserID:      result.Session.UserID,
		SessionID:   result.Session.SessionID,
	}

	if result.Reply != nil {
		resp.RawOrchestratorResponse = result.Reply.Raw
	}
	if len(resp.RawOrchestratorResponse) == 0 {
		resp.RawOrchestratorResponse = []byte("null")
	}

	if result.Speech != nil && len(result.Speech.Audio) > 0 {
		resp.AudioBase64 = nullable(result.Speech.Base64())
		resp.AudioMIME = nullable(result.Speech.MIMEType)
		resp.TTSProvider = nullable(result.Speech.Provider)
	}

	return resp
}

// issueIdentity resolves the caller's user id from the cookie and sets the cookie
func (h *RelayHandler) issueIdentity(c echo.Context) string {
	var presented string
	if cookie, err := c.Cookie(h.cookie.Name); err == nil {
		presented = cookie.Value
	}

	userID := entities.ResolveUserID(presented)
	c.Set(userIDContextKey, userID)
	h.setIdentityCookie(c, userID)
	return userID
}

func (h *RelayHandler) setIdentityCookie(c echo.Context, userID string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    userID,
		Path:     "/",
		MaxAge:   int(identityCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(identityCookieMaxAge),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// hasBareAudioField reports an "audio" part sent without a filename, which
// multipart parsing files under plain values.
func (h *RelayHandler) hasBareAudioField(c echo.Context) bool {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return false
	}
	_, ok := form.Value[formFieldAudio]
	return ok
}
