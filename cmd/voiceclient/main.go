// Command voiceclient sends a recorded audio file to a running relay and
// saves (optionally plays) the spoken reply.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type voiceResponse struct {
	Error       string  `json:"error"`
	UserText    string  `json:"user_text"`
	ReplyText   string  `json:"reply_text"`
	AudioBase64 *string `json:"audio_base64"`
	AudioMIME   *string `json:"audio_mime"`
	TTSProvider *string `json:"tts_provider"`
	STTProvider *string `json:"stt_provider"`
	UserID      string  `json:"user_id"`
	SessionID   string  `json:"session_id"`
}

func main() {
	godotenv.Load()

	server := flag.String("server", envOr("VOICE_SERVER_URL", "http://localhost:8080"), "relay base URL")
	input := flag.String("file", "sample_audio.webm", "audio file to send")
	output := flag.String("out", "reply.mp3", "where to write the spoken reply")
	userID := flag.String("user", "", "user id to present as the identity cookie")
	sessionID := flag.String("session", "", "session id to continue")
	autoplay := flag.Bool("play", os.Getenv("NO_AUTOPLAY") != "true", "play the reply after saving it")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := sendVoice(ctx, *server, *input, *userID, *sessionID, logger)
	if err != nil {
		logger.Fatal("Voice request failed", zap.Error(err))
	}

	if resp.Error != "" {
		logger.Fatal("Relay returned an error", zap.String("error", resp.Error))
	}

	fmt.Printf("You said:   %s\n", resp.UserText)
	fmt.Printf("Reply:      %s\n", resp.ReplyText)
	fmt.Printf("User:       %s\n", resp.UserID)
	fmt.Printf("Session:    %s\n", resp.SessionID)
	fmt.Printf("Providers:  stt=%s tts=%s\n", deref(resp.STTProvider), deref(resp.TTSProvider))

	if resp.AudioBase64 == nil {
		fmt.Println("No audio in reply")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(*resp.AudioBase64)
	if err != nil {
		logger.Fatal("Failed to decode reply audio", zap.Error(err))
	}
	if err := os.WriteFile(*output, audio, 0o644); err != nil {
		logger.Fatal("Failed to write reply audio", zap.Error(err))
	}
	fmt.Printf("Audio saved to %s (%s, %s)\n", *output, deref(resp.AudioMIME), humanize.Bytes(uint64(len(audio))))

	if *autoplay {
		if err := playAudioFile(*output, logger); err != nil {
			logger.Warn("Failed to play audio automatically", zap.Error(err))
		}
	}
}

func sendVoice(ctx context.Context, server, path, userID, sessionID string, logger *zap.Logger) (*voiceResponse, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	mime := mimetype.Detect(audio)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if sessionID != "" {
		if err := w.WriteField("session_id", sessionID); err != nil {
			return nil, err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, filepath.Base(path)))
	h.Set("Content-Type", mime.String())
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/voice", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if userID != "" {
		req.AddCookie(&http.Cookie{Name: "voice_user_id", Value: userID})
	}

	logger.Info("Sending audio",
		zap.String("file", path),
		zap.String("mimeType", mime.String()),
		zap.String("size", humanize.Bytes(uint64(len(audio)))))

	start := time.Now()
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	logger.Info("Relay responded",
		zap.Int("status", httpResp.StatusCode),
		zap.String("requestID", httpResp.Header.Get("X-Request-Id")),
		zap.Duration("elapsed", time.Since(start)))

	var resp voiceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %s", httpResp.StatusCode, raw)
	}
	return &resp, nil
}

type audioPlayer struct {
	command string
	args    []string
}

// playAudioFile tries the players found on PATH in order
func playAudioFile(filename string, logger *zap.Logger) error {
	players := []audioPlayer{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"mpg123", []string{"-q"}},
		{"afplay", nil},
		{"play", []string{"-q"}},
	}

	for _, player := range players {
		if _, err := exec.LookPath(player.command); err != nil {
			continue
		}
		args := append(player.args, filename)
		logger.Debug("Attempting to play audio", zap.String("player", player.command), zap.Strings("args", args))
		if err := exec.Command(player.command, args...).Run(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no suitable audio player found")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
