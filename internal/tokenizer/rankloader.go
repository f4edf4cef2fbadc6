package tokenizer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

const rankDownloadTimeout = 30 * time.Second

// ErrRankFileMissing is returned when a rank file is not on disk and
// downloads are disabled.
var ErrRankFileMissing = errors.New("tiktoken rank file not found")

var initRankLoaderOnce sync.Once

// InitRankLoader points tiktoken at rank files under dir. A file that is not
// present is downloaded and saved there when allowDownload is set; otherwise
// loading the encoding fails with ErrRankFileMissing. Only the first call has
// any effect, so it must run before the first NewBPE.
func InitRankLoader(dir string, allowDownload bool) {
	initRankLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(&rankLoader{dir: dir, download: allowDownload})
	})
}

type rankLoader struct {
	dir      string
	download bool
	mu       sync.Mutex
}

// LoadTiktokenBpe implements tiktoken.BpeLoader.
func (l *rankLoader) LoadTiktokenBpe(url string) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file := filepath.Join(l.dir, path.Base(url))
	if data, err := os.ReadFile(file); err == nil {
		return parseRanks(data)
	}
	if !l.download {
		return nil, fmt.Errorf("%w: %s", ErrRankFileMissing, file)
	}

	data, err := downloadRanks(url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if mkErr := os.MkdirAll(l.dir, 0o755); mkErr != nil {
		slog.Warn("failed to create rank dir", "path", l.dir, "error", mkErr)
	} else if wErr := writeFileAtomic(file, data); wErr != nil {
		slog.Warn("failed to save rank file", "path", file, "error", wErr)
	}
	return parseRanks(data)
}

// parseRanks reads the tiktoken format: a base64 token and its rank per line.
func parseRanks(data []byte) (map[string]int, error) {
	ranks := make(map[string]int, 1024)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			continue
		}
		token, err := base64.StdEncoding.DecodeString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("decode rank token: %w", err)
		}
		rank, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse rank: %w", err)
		}
		ranks[string(token)] = rank
	}
	return ranks, nil
}

func downloadRanks(url string) ([]byte, error) {
	client := &http.Client{Timeout: rankDownloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func writeFileAtomic(file string, data []byte) error {
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
