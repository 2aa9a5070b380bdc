package tui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/language"
	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the form
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// configureValues are the form fields before they are copied into a Config.
type configureValues struct {
	source        string
	modelID       string
	provider      string
	apiKey        string
	language      string
	threads       string
	notifications string
	save          bool
}

func valuesFrom(cfg *config.Config) *configureValues {
	return &configureValues{
		source:        cfg.Model.Source,
		modelID:       cfg.Model.ID,
		provider:      cfg.Engine.Provider,
		language:      language.FromCode(cfg.Engine.Language).Code,
		threads:       strconv.Itoa(cfg.Engine.Threads),
		notifications: cfg.Notifications.Type,
		save:          true,
	}
}

// apply copies the form values into a copy of cfg and validates it.
func (v *configureValues) apply(cfg *config.Config) (*config.Config, error) {
	out := *cfg
	out.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for k, p := range cfg.Providers {
		out.Providers[k] = p
	}

	threads, err := strconv.Atoi(v.threads)
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}

	out.Model.Source = v.source
	out.Model.ID = v.modelID
	out.Engine.Provider = v.provider
	out.Engine.Language = v.language
	out.Engine.Threads = threads
	out.Notifications.Type = v.notifications
	if v.apiKey != "" {
		out.Providers[v.provider] = config.ProviderConfig{APIKey: v.apiKey}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func validateThreads(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number, 0 for auto")
	}
	return nil
}

func modelOptions() []huh.Option[string] {
	var options []huh.Option[string]
	for _, m := range whisper.ListModels() {
		label := fmt.Sprintf("%s (%s)", m.Name, m.Size)
		if !m.Multilingual {
			label += " - English only"
		}
		options = append(options, huh.NewOption(label, m.ID))
	}
	return options
}

func languageOptions() []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(language.Auto.Name, language.Auto.Code)}
	for _, lang := range language.List() {
		options = append(options, huh.NewOption(lang.Label(), lang.Code))
	}
	return options
}

func buildConfigureForm(cfg *config.Config, v *configureValues) *huh.Form {
	keyDesc := "Leave empty to keep the current key or use OPENAI_API_KEY"
	if key := cfg.APIKey(config.ProviderOpenAI); key != "" {
		keyDesc = "Current: " + maskAPIKey(key) + ". Leave empty to keep it"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model source").
				Description("Bundled loads the model shipped in the assets directory").
				Options(
					huh.NewOption("Bundled asset", config.SourceBundled),
					huh.NewOption("Download from huggingface", config.SourceRemote),
				).
				Value(&v.source),
			huh.NewSelect[string]().
				Title("Whisper model").
				Options(modelOptions()...).
				Value(&v.modelID),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("Whisper.cpp (local)", config.ProviderWhisperCpp),
					huh.NewOption("OpenAI", config.ProviderOpenAI),
				).
				Value(&v.provider),
			huh.NewInput().
				Title("OpenAI API key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&v.apiKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions()...).
				Filtering(true).
				Value(&v.language),
			huh.NewInput().
				Title("Threads").
				Description("0 uses all cores but one").
				Validate(validateThreads).
				Value(&v.threads),
			huh.NewSelect[string]().
				Title("Notifications").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&v.notifications),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Discard").
				Value(&v.save),
		),
	).WithTheme(getTheme())
}

// Configure runs the configuration form for cfg.
func Configure(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	clearScreen()
	fmt.Println(Logo())

	v := valuesFrom(cfg)
	if err := buildConfigureForm(cfg, v).Run(); err != nil {
		if err == huh.ErrUserAborted {
			return &ConfigureResult{Cancelled: true}, nil
		}
		return &ConfigureResult{Cancelled: true}, err
	}
	if !v.save {
		return &ConfigureResult{Cancelled: true}, nil
	}

	out, err := v.apply(cfg)
	if err != nil {
		return &ConfigureResult{Cancelled: true}, err
	}
	return &ConfigureResult{Config: out}, nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
