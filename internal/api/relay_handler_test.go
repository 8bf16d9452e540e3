package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wbernardo-star/listen-client-mobile/adapters/orchestrator"
	"github.com/wbernardo-star/listen-client-mobile/adapters/stt"
	"github.com/wbernardo-star/listen-client-mobile/adapters/tts"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/internal/staging"
	"github.com/wbernardo-star/listen-client-mobile/usecase"
)

const testCookie = "voice_user_id"

type testServer struct {
	echo         *echo.Echo
	relay        *usecase.RelayService
	stt          *stt.MockSpeechToText
	orchestrator *orchestrator.Mock
	tts          *tts.Mock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	s := &testServer{
		stt: &stt.MockSpeechToText{
			ProviderName: stt.ProviderElevenLabs,
			TranscribeFunc: func(ctx context.Context, clip entities.AudioClip) (string, error) {
				return "hello there", nil
			},
		},
		orchestrator: &orchestrator.Mock{},
		tts:          tts.NewMock(tts.ProviderElevenLabs),
	}

	stager, err := staging.NewStager(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create stager: %v", err)
	}
	sttStage, err := stt.NewStage(logger, s.stt)
	if err != nil {
		t.Fatalf("Failed to create stt stage: %v", err)
	}
	ttsStage, err := tts.NewStage(logger, s.tts)
	if err != nil {
		t.Fatalf("Failed to create tts stage: %v", err)
	}
	extractor, err := orchestrator.NewReplyExtractor()
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	s.relay = usecase.NewRelayService(stager, sttStage, s.orchestrator, extractor, ttsStage,
		usecase.CallerProfile{Channel: "web_widget", Locale: "en-US", Tenant: "t", ClientApp: "voice-widget"}, logger)

	s.echo = newEcho(t, s.relay)
	return s
}

func newEcho(t *testing.T, relay Relayer) *echo.Echo {
	t.Helper()
	return newEchoWith(relay, RouteOptions{
		STTProviders: []string{stt.ProviderElevenLabs},
		TTSProviders: []string{tts.ProviderElevenLabs},
	}, zaptest.NewLogger(t))
}

func newEchoWith(relay Relayer, opts RouteOptions, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	e.Use(middleware.RequestID())

	handler := NewRelayHandler(relay, CookieConfig{Name: testCookie}, logger)
	InitRoutes(e, handler, opts, logger)
	return e
}

type formPart struct {
	header  textproto.MIMEHeader
	content string
}

func audioPart(filename, content string) formPart {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="`+filename+`"`)
	h.Set("Content-Type", "audio/webm")
	return formPart{header: h, content: content}
}

func fieldPart(name, value string) formPart {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+name+`"`)
	return formPart{header: h, content: value}
}

func voiceRequest(t *testing.T, cookie string, parts ...formPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		pw, err := w.CreatePart(p.header)
		if err != nil {
			t.Fatalf("Failed to create part: %v", err)
		}
		if _, err := pw.Write([]byte(p.content)); err != nil {
			t.Fatalf("Failed to write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/voice", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func identityCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatalf("Expected %s cookie to be set", testCookie)
	return nil
}

func TestVoice_HappyPath(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s.echo, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)

	if body["user_text"] != "hello there" {
		t.Errorf("Expected user_text 'hello there', got %v", body["user_text"])
	}
	if body["reply_text"] != "You said: hello there" {
		t.Errorf("Unexpected reply_text %v", body["reply_text"])
	}
	if body["stt_provider"] != stt.ProviderElevenLabs {
		t.Errorf("Expected stt_provider %s, got %v", stt.ProviderElevenLabs, body["stt_provider"])
	}
	if body["tts_provider"] != tts.ProviderElevenLabs {
		t.Errorf("Expected tts_provider %s, got %v", tts.ProviderElevenLabs, body["tts_provider"])
	}
	if body["audio_mime"] != "audio/mpeg" {
		t.Errorf("Expected audio_mime audio/mpeg, got %v", body["audio_mime"])
	}
	if body["audio_base64"] != "SUQzbW9jaw==" {
		t.Errorf("Unexpected audio_base64 %v", body["audio_base64"])
	}

	raw, ok := body["raw_orchestrator_response"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected raw_orchestrator_response object, got %T", body["raw_orchestrator_response"])
	}
	if _, ok := raw["reply"]; !ok {
		t.Errorf("Expected raw response to be passed through, got %v", raw)
	}

	userID, _ := body["user_id"].(string)
	if !strings.HasPrefix(userID, "user-") {
		t.Errorf("Expected minted user id, got %q", userID)
	}
	sessionID, _ := body["session_id"].(string)
	if !strings.HasPrefix(sessionID, "sess-") {
		t.Errorf("Expected minted session id, got %q", sessionID)
	}

	cookie := identityCookie(t, rec)
	if cookie.Value != userID {
		t.Errorf("Expected cookie value %q, got %q", userID, cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("Expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.MaxAge != 365*24*60*60 {
		t.Errorf("Expected one year MaxAge, got %d", cookie.MaxAge)
	}
	if cookie.Path != "/" {
		t.Errorf("Expected path /, got %q", cookie.Path)
	}

	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("Expected a request id header")
	}
}

func TestVoice_ReusesPresentedIdentity(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s.echo, voiceRequest(t, "user-existing",
		fieldPart("session_id", "sess-abc"),
		audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["user_id"] != "user-existing" {
		t.Errorf("Expected presented user id, got %v", body["user_id"])
	}
	if body["session_id"] != "sess-abc" {
		t.Errorf("Expected presented session id, got %v", body["session_id"])
	}
	if identityCookie(t, rec).Value != "user-existing" {
		t.Error("Expected cookie to keep the presented user id")
	}

	calls := s.orchestrator.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 orchestrator call, got %d", len(calls))
	}
	if calls[0].Session.SessionID != "sess-abc" || calls[0].Caller.UserID != "user-existing" {
		t.Errorf("Unexpected orchestrator session %+v caller %+v", calls[0].Session, calls[0].Caller)
	}
}

func TestVoice_IdentityStableAcrossRequests(t *testing.T) {
	s := newTestServer(t)

	first := serve(s.echo, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))
	userID := identityCookie(t, first).Value

	second := serve(s.echo, voiceRequest(t, userID, audioPart("clip.webm", "audio-bytes")))

	if got := identityCookie(t, second).Value; got != userID {
		t.Errorf("Expected cookie %q to be echoed unchanged, got %q", userID, got)
	}
	if s.stt.CallCount() != 2 {
		t.Errorf("Expected two independent transcriptions, got %d", s.stt.CallCount())
	}
	if len(s.orchestrator.Calls()) != 2 {
		t.Errorf("Expected two orchestrator calls, got %d", len(s.orchestrator.Calls()))
	}

	firstBody, secondBody := decodeBody(t, first), decodeBody(t, second)
	if firstBody["session_id"] == secondBody["session_id"] {
		t.Error("Expected a fresh session id when none is presented")
	}
}

func TestVoice_NoAudio(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s.echo, voiceRequest(t, "", fieldPart("session_id", "sess-1")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != ErrorNoAudio {
		t.Errorf("Expected %q, got %v", ErrorNoAudio, body["error"])
	}
	identityCookie(t, rec)

	if s.stt.CallCount() != 0 {
		t.Error("Expected no transcription attempt")
	}
}

func TestVoice_EmptyFilename(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s.echo, voiceRequest(t, "", audioPart("", "audio-bytes")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != ErrorEmptyFilename {
		t.Errorf("Expected %q, got %v", ErrorEmptyFilename, body["error"])
	}
	if s.stt.CallCount() != 0 {
		t.Error("Expected no transcription attempt")
	}
}

func TestVoice_EmptyTranscription(t *testing.T) {
	s := newTestServer(t)
	s.stt.TranscribeFunc = func(ctx context.Context, clip entities.AudioClip) (string, error) {
		return "", stt.ErrEmptyTranscript
	}

	rec := serve(s.echo, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != ErrorEmptyTranscription {
		t.Errorf("Expected %q, got %v", ErrorEmptyTranscription, body["error"])
	}
	if v, ok := body["stt_provider"]; !ok || v != nil {
		t.Errorf("Expected stt_provider null, got %v (present=%v)", v, ok)
	}
	if len(s.orchestrator.Calls()) != 0 {
		t.Error("Expected orchestrator not to be called")
	}
}

func TestVoice_OrchestratorFailure(t *testing.T) {
	s := newTestServer(t)
	s.orchestrator.ConverseFunc = func(ctx context.Context, utterance string) *entities.OrchestratorReply {
		return orchestrator.FailedReply(entities.OrchestratorHTTPError, 503, "upstream down")
	}

	rec := serve(s.echo, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != ErrorOrchestratorCall {
		t.Errorf("Expected %q, got %v", ErrorOrchestratorCall, body["error"])
	}
	if body["stt_provider"] != stt.ProviderElevenLabs {
		t.Errorf("Expected stt_provider to be reported, got %v", body["stt_provider"])
	}

	details, ok := body["details"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected details object, got %T", body["details"])
	}
	if details["error"] != entities.OrchestratorHTTPError {
		t.Errorf("Unexpected details.error %v", details["error"])
	}
	if details["status_code"] != float64(503) {
		t.Errorf("Expected details.status_code 503, got %v", details["status_code"])
	}
	if details["body"] != "upstream down" {
		t.Errorf("Expected details.body, got %v", details["body"])
	}
	if s.tts.CallCount() != 0 {
		t.Error("Expected no synthesis after a hard orchestrator failure")
	}
}

func TestVoice_NoAudioFromTTS(t *testing.T) {
	s := newTestServer(t)
	s.tts.SynthesizeFunc = func(ctx context.Context, text string) (*entities.SpeechClip, error) {
		return nil, errors.New("quota exceeded")
	}

	rec := serve(s.echo, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	for _, field := range []string{"audio_base64", "audio_mime", "tts_provider"} {
		if v, ok := body[field]; !ok || v != nil {
			t.Errorf("Expected %s null, got %v (present=%v)", field, v, ok)
		}
	}
	if body["reply_text"] != "You said: hello there" {
		t.Errorf("Expected reply text to survive, got %v", body["reply_text"])
	}
}

type fakeRelay struct {
	err error
}

func (f *fakeRelay) Process(ctx context.Context, req usecase.RelayRequest) (*usecase.RelayResult, error) {
	return nil, f.err
}

func TestVoice_StagingFailure(t *testing.T) {
	e := newEcho(t, &fakeRelay{err: fmt.Errorf("%w: disk full", usecase.ErrAudioStaging)})

	rec := serve(e, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != ErrorAudioStagingFailed {
		t.Errorf("Expected %q, got %v", ErrorAudioStagingFailed, body["error"])
	}
	identityCookie(t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s.echo, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Status != "ok" || health.Service != serviceName {
		t.Errorf("Unexpected health %+v", health)
	}
	if len(health.STTProviders) != 1 || health.STTProviders[0] != stt.ProviderElevenLabs {
		t.Errorf("Unexpected stt providers %v", health.STTProviders)
	}
}

func TestVoice_BodyLimitKeepsIdentityCookie(t *testing.T) {
	s := newTestServer(t)
	e := newEchoWith(s.relay, RouteOptions{MaxBodySize: "1K"}, zaptest.NewLogger(t))

	rec := serve(e, voiceRequest(t, "", audioPart("clip.webm", strings.Repeat("a", 4096))))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rec.Code)
	}
	if cookie := identityCookie(t, rec); !strings.HasPrefix(cookie.Value, "user-") {
		t.Errorf("Expected a minted user id in the cookie, got %q", cookie.Value)
	}
	if s.stt.CallCount() != 0 {
		t.Error("Expected no transcription attempt")
	}

	rec = serve(e, voiceRequest(t, "user-existing", audioPart("clip.webm", strings.Repeat("a", 4096))))
	if identityCookie(t, rec).Value != "user-existing" {
		t.Error("Expected the presented user id to be kept on a rejected upload")
	}
}

func TestVoice_BodyLimitAllowsSmallUploads(t *testing.T) {
	s := newTestServer(t)
	e := newEchoWith(s.relay, RouteOptions{MaxBodySize: "1M"}, zaptest.NewLogger(t))

	rec := serve(e, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 {
		t.Errorf("Expected exactly one cookie, got %d", len(cookies))
	}
}

func TestVoice_LogsWhereRunHalted(t *testing.T) {
	s := newTestServer(t)
	s.stt.TranscribeFunc = func(ctx context.Context, clip entities.AudioClip) (string, error) {
		return "", stt.ErrEmptyTranscript
	}
	core, logs := observer.New(zap.InfoLevel)
	e := newEchoWith(s.relay, RouteOptions{}, zap.New(core))

	rec := serve(e, voiceRequest(t, "", audioPart("clip.webm", "audio-bytes")))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	entries := logs.FilterMessage("Voice turn served").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 summary log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["haltedAt"] != string(usecase.StepTranscribe) {
		t.Errorf("Expected haltedAt %q, got %v", usecase.StepTranscribe, fields["haltedAt"])
	}
	if fields["outcome"] != string(usecase.OutcomeEmptyTranscript) {
		t.Errorf("Expected outcome %q, got %v", usecase.OutcomeEmptyTranscript, fields["outcome"])
	}
	if fields["requestID"] == "" {
		t.Error("Expected the request id on the summary line")
	}
}
