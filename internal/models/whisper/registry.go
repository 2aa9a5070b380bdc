package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ProgressFunc is called during download with bytes written so far and the expected total.
// total is 0 when the size is unknown.
type ProgressFunc func(written, total int64)

// partial downloads live next to the destination until complete
const partialSuffix = ".part"

// ProgressPercent converts a byte count into a percentage clamped to [0, 100].
func ProgressPercent(written, total int64) float64 {
	if total <= 0 || written <= 0 {
		return 0
	}
	p := float64(written) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// IsInstalled returns true if path exists and is non-empty
func IsInstalled(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// ListInstalled returns IDs of the registry models present in dir
func ListInstalled(dir string) []string {
	var installed []string
	for _, m := range models {
		if IsInstalled(filepath.Join(dir, m.Filename)) {
			installed = append(installed, m.ID)
		}
	}
	return installed
}

// Download fetches url into dest, resuming from dest+".part" when a previous
// attempt was interrupted. onProgress is optional.
func Download(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	return DownloadWithClient(ctx, http.DefaultClient, url, dest, onProgress)
}

func DownloadWithClient(ctx context.Context, client *http.Client, url, dest string, onProgress ProgressFunc) error {
	if url == "" {
		return fmt.Errorf("no download URL")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	partPath := dest + partialSuffix
	var offset int64
	if info, err := os.Stat(partPath); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
		log.Info().Str("url", url).Int64("offset", offset).Msg("download: resuming")
	case http.StatusOK:
		// server ignored the range or there was nothing to resume
		flags |= os.O_TRUNC
		offset = 0
	case http.StatusRequestedRangeNotSatisfiable:
		// the partial file is already complete
		return finalize(partPath, dest)
	default:
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := int64(0)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	out, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open partial file: %w", err)
	}

	written := offset
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			out.Close()
			return ctx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				return fmt.Errorf("failed to write: %w", err)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// keep the partial file for the next attempt
			out.Close()
			return fmt.Errorf("failed to read: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if total > 0 && written < total {
		return fmt.Errorf("download truncated: got %d of %d bytes", written, total)
	}

	return finalize(partPath, dest)
}

func finalize(partPath, dest string) error {
	if err := os.Rename(partPath, dest); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

// Remove deletes a downloaded model file and any partial download
func Remove(path string) error {
	if !IsInstalled(path) {
		return fmt.Errorf("model not installed: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	_ = os.Remove(path + partialSuffix)
	return nil
}
