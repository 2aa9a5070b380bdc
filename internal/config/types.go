package config

import "time"

// Model sources
const (
	SourceBundled = "bundled"
	SourceRemote  = "remote"
)

// Engine providers
const (
	ProviderWhisperCpp = "whisper-cpp"
	ProviderOpenAI     = "openai"
)

type Config struct {
	Model         ModelConfig               `toml:"model"`
	Engine        EngineConfig              `toml:"engine"`
	Realtime      RealtimeConfig            `toml:"realtime"`
	Recording     RecordingConfig           `toml:"recording"`
	Assets        AssetsConfig              `toml:"assets"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Log           LogConfig                 `toml:"log"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// ModelConfig selects where the whisper model comes from on startup
type ModelConfig struct {
	ID          string `toml:"id"`           // whisper model id, e.g. "tiny"
	Source      string `toml:"source"`       // "bundled" or "remote"
	BundledPath string `toml:"bundled_path"` // relative to assets.dir
	URL         string `toml:"url"`          // overrides the huggingface URL for id
	Dir         string `toml:"dir"`          // download directory, empty = default
}

type EngineConfig struct {
	Provider    string `toml:"provider"`
	Language    string `toml:"language"`
	Threads     int    `toml:"threads"` // 0 = auto: NumCPU-1
	OpenAIModel string `toml:"openai_model"`
}

type RealtimeConfig struct {
	WindowSec int           `toml:"window_sec"`
	SliceSec  int           `toml:"slice_sec"`
	Step      time.Duration `toml:"step"`
	AutoStop  bool          `toml:"auto_stop"` // return to idle when capture ends on its own
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
	Dir               string `toml:"dir"`
}

type AssetsConfig struct {
	Dir    string `toml:"dir"`
	Sample string `toml:"sample"`
}

type NotificationsConfig struct {
	Type string `toml:"type"` // "desktop", "log", "none"
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}
