package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/language"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements BatchAdapter with the OpenAI transcription API
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	return NewOpenAIAdapterWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIAdapterWithConfig allows pointing the client at another base URL.
func NewOpenAIAdapterWithConfig(cfg openai.ClientConfig, model string) *OpenAIAdapter {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *OpenAIAdapter) TranscribeFile(ctx context.Context, path string, opts Options) (string, error) {
	req := openai.AudioRequest{
		Model:    a.model,
		FilePath: path,
		Language: language.ForProvider(opts.Language, ProviderOpenAI),
		Format:   openai.AudioResponseFormatJSON,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)
	if err != nil {
		log.Error().Err(err).Dur("took", duration).Msg("openai-adapter: API call failed")
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	log.Debug().Dur("took", duration).Str("file", path).Msg("openai-adapter: transcribed")
	return resp.Text, nil
}
