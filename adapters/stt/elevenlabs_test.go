package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

func writeClip(t *testing.T, name string, data []byte, mime string) entities.AudioClip {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write clip: %v", err)
	}
	return entities.AudioClip{
		Path:     path,
		Filename: name,
		MIMEType: mime,
		Size:     int64(len(data)),
	}
}

func TestNewElevenLabsSTT_RequiresAPIKey(t *testing.T) {
	_, err := NewElevenLabsSTT(ElevenLabsConfig{}, zaptest.NewLogger(t))
	if !errors.Is(err, provider.ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewElevenLabsSTT_Defaults(t *testing.T) {
	s, err := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsSTT: %v", err)
	}
	if s.apiBaseURL != defaultAPIBaseURL {
		t.Errorf("Expected default base URL, got %s", s.apiBaseURL)
	}
	if s.modelID != "scribe_v1" {
		t.Errorf("Expected scribe_v1, got %s", s.modelID)
	}
	if s.client.Timeout != defaultTimeout {
		t.Errorf("Expected 60s timeout, got %v", s.client.Timeout)
	}
	if s.Name() != "elevenlabs" {
		t.Errorf("Expected provider name elevenlabs, got %s", s.Name())
	}
}

func TestElevenLabsSTT_TranscribeAudio(t *testing.T) {
	audio := []byte("webm-audio-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text/convert" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "xi-test" {
			t.Errorf("Missing xi-api-key header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart: %v", err)
			return
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("Expected model_id scribe_v1, got %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file part: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(audio) {
			t.Errorf("Unexpected file content %q", data)
		}
		if header.Filename != "recording.webm" {
			t.Errorf("Expected filename recording.webm, got %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/webm" {
			t.Errorf("Expected audio/webm part, got %s", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"language_code":"en","text":"  where is my order  "}`))
	}))
	defer server.Close()

	s, err := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi-test", APIBaseURL: server.URL + "/v1/"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsSTT: %v", err)
	}

	text, err := s.TranscribeAudio(context.Background(), writeClip(t, "recording.webm", audio, "video/webm"))
	if err != nil {
		t.Fatalf("Failed to transcribe: %v", err)
	}
	if text != "where is my order" {
		t.Errorf("Expected trimmed transcript, got %q", text)
	}
}

func TestElevenLabsSTT_NestedTranscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transcription":{"text":"nested text"}}`))
	}))
	defer server.Close()

	s, _ := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi", APIBaseURL: server.URL}, zaptest.NewLogger(t))

	text, err := s.TranscribeAudio(context.Background(), writeClip(t, "a.webm", []byte("a"), "audio/webm"))
	if err != nil {
		t.Fatalf("Failed to transcribe: %v", err)
	}
	if text != "nested text" {
		t.Errorf("Expected nested text, got %q", text)
	}
}

func TestElevenLabsSTT_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "api error",
			status: http.StatusUnauthorized,
			body:   `{"detail":{"message":"Invalid API key"}}`,
			wantErr: func(err error) bool {
				var apiErr *provider.APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
			},
		},
		{
			name:   "blank transcript",
			status: http.StatusOK,
			body:   `{"text":"   "}`,
			wantErr: func(err error) bool {
				return errors.Is(err, ErrEmptyTranscript)
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>`,
			wantErr: func(err error) bool {
				return err != nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, _ := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi", APIBaseURL: server.URL}, zaptest.NewLogger(t))

			_, err := s.TranscribeAudio(context.Background(), writeClip(t, "a.webm", []byte("a"), "audio/webm"))
			if !tt.wantErr(err) {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestElevenLabsSTT_MissingFile(t *testing.T) {
	s, _ := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi", APIBaseURL: "http://127.0.0.1:1"}, zaptest.NewLogger(t))

	_, err := s.TranscribeAudio(context.Background(), entities.AudioClip{Path: filepath.Join(t.TempDir(), "gone.webm")})
	if err == nil {
		t.Error("Expected error for missing staged file")
	}
}

func TestElevenLabsSTT_DoesNotFollowRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("Redirect target was called with xi-api-key %q", r.Header.Get("xi-api-key"))
		w.Write([]byte(`{"text":"from redirect target"}`))
	}))
	defer target.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Redirect(w, r, target.URL, http.StatusTemporaryRedirect)
	}))
	defer origin.Close()

	s, _ := NewElevenLabsSTT(ElevenLabsConfig{APIKey: "xi", APIBaseURL: origin.URL}, zaptest.NewLogger(t))

	_, err := s.TranscribeAudio(context.Background(), writeClip(t, "a.webm", []byte("a"), "audio/webm"))
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected APIError with status 307, got %v", err)
	}
}
