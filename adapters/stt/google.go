package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

const opusSampleRate = 48000

// GoogleSpeechToText implements SpeechToText for Google Cloud using synchronous recognition.
// Credentials come from Application Default Credentials.
type GoogleSpeechToText struct {
	client    *speech.Client
	recognize func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	language  string
	logger    *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech client. Call Close on shutdown.
func NewGoogleSpeechToText(ctx context.Context, language string, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	g := newGoogleSpeechToText(language, logger, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	})
	g.client = client
	return g, nil
}

func newGoogleSpeechToText(language string, logger *zap.Logger, recognize func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)) *GoogleSpeechToText {
	if language == "" {
		language = "en-US"
	}
	return &GoogleSpeechToText{
		recognize: recognize,
		language:  language,
		logger:    logger,
	}
}

// Name implements repositories.SpeechToText
func (g *GoogleSpeechToText) Name() string {
	return ProviderGoogleSpeech
}

// TranscribeAudio converts the staged clip to text with a single Recognize call
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error) {
	encodingName, sampleRate, err := encodingForMIME(clip.AudioMIMEType())
	if err != nil {
		return "", err
	}

	// Convert encoding string to Google Speech API enum
	encoding, err := getAudioEncoding(encodingName)
	if err != nil {
		return "", fmt.Errorf("unsupported audio encoding: %s", encodingName)
	}

	audio, err := os.ReadFile(clip.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read staged audio: %w", err)
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize audio: %w", err)
	}

	// Join the best alternative of each result
	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// encodingForMIME maps an audio MIME type to a Google encoding name and sample rate.
// A zero sample rate lets the API read it from the file header.
func encodingForMIME(mime string) (string, int, error) {
	switch mime {
	case "audio/webm":
		return "WEBM_OPUS", opusSampleRate, nil
	case "audio/ogg", "audio/opus":
		return "OGG_OPUS", opusSampleRate, nil
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return "LINEAR16", 0, nil
	case "audio/flac", "audio/x-flac":
		return "FLAC", 0, nil
	case "audio/amr":
		return "AMR", 8000, nil
	case "audio/amr-wb":
		return "AMR_WB", 16000, nil
	case "audio/basic":
		return "MULAW", 8000, nil
	default:
		return "", 0, fmt.Errorf("google speech: unsupported audio type %s", mime)
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
