package config

import (
	"path/filepath"

	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/leonardotrapani/whisperdeck/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            pwFormat(c.Recording.Format),
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

// ToRecordingOptions returns the voice recording preset: mono 16 kHz 16-bit PCM WAV.
func (c *Config) ToRecordingOptions() (recording.Options, error) {
	dir, err := c.RecordingsDir()
	if err != nil {
		return recording.Options{}, err
	}
	return recording.Options{
		Capture:   c.ToRecordingConfig(),
		Dir:       dir,
		Extension: ".wav",
		BitDepth:  16,
	}, nil
}

// ToInitConfig builds the engine init config for a resolved model path.
func (c *Config) ToInitConfig(modelPath string, bundled bool) transcriber.InitConfig {
	return transcriber.InitConfig{
		ModelPath:      modelPath,
		IsBundledAsset: bundled,
		AssetsDir:      c.Assets.Dir,
		Provider:       c.Engine.Provider,
		APIKey:         c.APIKey(c.Engine.Provider),
		OpenAIModel:    c.Engine.OpenAIModel,
		Capture:        c.ToRecordingConfig(),
		Step:           c.Realtime.Step,
	}
}

func (c *Config) ToTranscribeOptions() transcriber.Options {
	return transcriber.Options{
		Language:   c.Engine.Language,
		MaxThreads: c.Engine.Threads,
	}
}

func (c *Config) ToRealtimeOptions() transcriber.RealtimeOptions {
	return transcriber.RealtimeOptions{
		Language:          c.Engine.Language,
		RealtimeWindowSec: c.Realtime.WindowSec,
		SliceSec:          c.Realtime.SliceSec,
		MaxThreads:        c.Engine.Threads,
	}
}

// SampleSource is the bundled file used by the file transcription flow.
func (c *Config) SampleSource() transcriber.Source {
	return transcriber.BundledAsset(c.Assets.Sample)
}

// RemoteModel resolves the download URL and destination for the remote model source.
func (c *Config) RemoteModel() (url, dest string, err error) {
	dir, err := c.ModelsDir()
	if err != nil {
		return "", "", err
	}

	url = c.Model.URL
	filename := ""
	if info := whisper.GetModel(c.Model.ID); info != nil {
		filename = info.Filename
		if url == "" {
			url = whisper.GetDownloadURL(c.Model.ID)
		}
	}
	if filename == "" {
		filename = filepath.Base(url)
	}
	return url, filepath.Join(dir, filename), nil
}

// pw-record wants the long sample format names
func pwFormat(format string) string {
	switch format {
	case "s16":
		return "s16le"
	}
	return format
}
