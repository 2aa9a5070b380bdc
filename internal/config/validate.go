package config

import (
	"fmt"

	"github.com/leonardotrapani/whisperdeck/internal/language"
	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
)

func (c *Config) Validate() error {
	switch c.Model.Source {
	case SourceBundled:
		if c.Model.BundledPath == "" {
			return fmt.Errorf("invalid model.bundled_path: empty (required when model.source = bundled)")
		}
	case SourceRemote:
		if c.Model.URL == "" && whisper.GetModel(c.Model.ID) == nil {
			return fmt.Errorf("invalid model.id: %q (unknown whisper model and no model.url set)", c.Model.ID)
		}
	default:
		return fmt.Errorf("invalid model.source: %q (must be bundled or remote)", c.Model.Source)
	}

	switch c.Engine.Provider {
	case ProviderWhisperCpp:
		// local, no API key required
	case ProviderOpenAI:
		if c.APIKey(ProviderOpenAI) == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}
		if c.Engine.OpenAIModel == "" {
			return fmt.Errorf("invalid engine.openai_model: empty")
		}
	default:
		return fmt.Errorf("unsupported engine.provider: %s (must be whisper-cpp or openai)", c.Engine.Provider)
	}

	if !language.IsValidCode(c.Engine.Language) {
		return fmt.Errorf("invalid engine.language: %s (use auto or ISO-639-1 codes like 'en', 'es', 'fr')", c.Engine.Language)
	}
	if c.Engine.Threads < 0 {
		return fmt.Errorf("invalid engine.threads: %d", c.Engine.Threads)
	}

	if c.Realtime.WindowSec <= 0 {
		return fmt.Errorf("invalid realtime.window_sec: %d", c.Realtime.WindowSec)
	}
	if c.Realtime.SliceSec <= 0 || c.Realtime.SliceSec > c.Realtime.WindowSec {
		return fmt.Errorf("invalid realtime.slice_sec: %d (must be between 1 and window_sec)", c.Realtime.SliceSec)
	}
	if c.Realtime.Step <= 0 {
		return fmt.Errorf("invalid realtime.step: %v", c.Realtime.Step)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	switch c.Recording.Format {
	case "s16", "s16le":
	default:
		return fmt.Errorf("invalid recording.format: %q (only s16 or s16le is supported)", c.Recording.Format)
	}

	if c.Assets.Sample == "" {
		return fmt.Errorf("invalid assets.sample: empty")
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}
