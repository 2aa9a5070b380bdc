package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
	"github.com/spf13/cobra"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage downloadable whisper models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func modelsDir() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.ModelsDir()
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper models and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}
			printModelList(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func printModelList(w io.Writer, dir string) {
	installed := make(map[string]bool)
	for _, id := range whisper.ListInstalled(dir) {
		installed[id] = true
	}

	for _, m := range whisper.ListModels() {
		fmt.Fprintln(w, modelLine(m, installed[m.ID]))
	}
}

func modelLine(m whisper.ModelInfo, installed bool) string {
	prefix := "  [ ]"
	if installed {
		prefix = "  [x]"
	}

	var parts []string
	if !m.Multilingual {
		parts = append(parts, "english")
	}
	if m.Size != "" {
		parts = append(parts, m.Size)
	}

	line := fmt.Sprintf("%s %s - %s", prefix, m.ID, m.Name)
	if len(parts) > 0 {
		line += fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
	}
	return line
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}
			return runModelDownload(cmd.Context(), cmd.OutOrStdout(), dir, args[0], whisper.Download)
		},
	}
}

type downloadFunc func(ctx context.Context, url, dest string, onProgress whisper.ProgressFunc) error

func runModelDownload(ctx context.Context, out io.Writer, dir, modelName string, download downloadFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	model := whisper.GetModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	path := whisper.GetModelPath(dir, modelName)
	if whisper.IsInstalled(path) {
		fmt.Fprintf(out, "model '%s' is already installed at %s\n", modelName, path)
		return nil
	}

	fmt.Fprintf(out, "downloading %s (%s)...\n", modelName, model.Size)

	lastPercent := 0
	err := download(ctx, whisper.GetDownloadURL(modelName), path, func(written, total int64) {
		percent := int(whisper.ProgressPercent(written, total))
		if percent >= lastPercent+10 {
			fmt.Fprintf(out, "%d%% (%s) ", percent, humanize.Bytes(uint64(written)))
			lastPercent = percent
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintf(out, "\ndownload complete: %s\n", path)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}
			return runModelRemove(cmd.OutOrStdout(), dir, args[0])
		},
	}
}

func runModelRemove(out io.Writer, dir, modelName string) error {
	if whisper.GetModel(modelName) == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	path := whisper.GetModelPath(dir, modelName)
	if !whisper.IsInstalled(path) {
		return fmt.Errorf("model '%s' is not installed", modelName)
	}
	if err := whisper.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}

	fmt.Fprintf(out, "model '%s' removed successfully\n", modelName)
	return nil
}
