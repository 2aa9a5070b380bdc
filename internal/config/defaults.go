package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			ID:          "tiny",
			Source:      SourceBundled,
			BundledPath: "whisper/ggml-tiny.bin",
		},
		Engine: EngineConfig{
			Provider:    ProviderWhisperCpp,
			Language:    "en",
			Threads:     6,
			OpenAIModel: "whisper-1",
		},
		Realtime: RealtimeConfig{
			WindowSec: 60,
			SliceSec:  20,
			Step:      time.Second,
			AutoStop:  false,
		},
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Assets: AssetsConfig{
			Dir:    "assets",
			Sample: "audio/micro-machines.wav",
		},
		Notifications: NotificationsConfig{
			Type: "log",
		},
		Log: LogConfig{
			Level: "info",
		},
		Providers: make(map[string]ProviderConfig),
	}
}
