package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

const userAgent = "Mediascribe-Model-Download/1.0"

var errFileMissing = errors.New("HTTP 404 Not Found")

// fallbackFiles is used when the hub API cannot list the repository
var fallbackFiles = []string{"config.json", "model.bin", "tokenizer.json", "vocabulary.txt"}

// Progress is reported while a model downloads
type Progress struct {
	DownloadedMB float64
	SpeedMBs     float64
	// Fraction is estimated from the catalog size and stays below 1 until the
	// download completes
	Fraction float64
}

// ProgressFunc receives download progress
type ProgressFunc func(Progress)

// Downloader fetches model repositories from a Hugging Face compatible hub
type Downloader struct {
	Endpoint string
	Client   *http.Client
	// Interval throttles progress callbacks
	Interval time.Duration
}

// NewDownloader creates a downloader for endpoint using client
func NewDownloader(endpoint string, client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Client:   client,
		Interval: 500 * time.Millisecond,
	}
}

func (d *Downloader) fileURL(info Info, file string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", d.Endpoint, info.Repo, file)
}

// CheckSource verifies that the hub serves the model's config.json
func (d *Downloader) CheckSource(ctx context.Context, info Info) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.fileURL(info, "config.json"), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: source returned HTTP %d", ErrSourceUnavailable, resp.StatusCode)
	}
	return nil
}

type repoListing struct {
	Siblings []struct {
		Filename string `json:"rfilename"`
	} `json:"siblings"`
}

// listFiles asks the hub API for the repository's files
func (d *Downloader) listFiles(ctx context.Context, info Info) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/models/%s", d.Endpoint, info.Repo), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned HTTP %d", resp.StatusCode)
	}

	var listing repoListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	var files []string
	for _, s := range listing.Siblings {
		if s.Filename == "" || strings.HasPrefix(path.Base(s.Filename), ".") {
			continue
		}
		files = append(files, s.Filename)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("listing is empty")
	}
	return files, nil
}

// Download fetches every repository file into the model folder and reports
// whether the folder is complete afterwards. Files already present are kept.
func (d *Downloader) Download(ctx context.Context, modelsDir string, info Info, progress ProgressFunc) error {
	target := Path(modelsDir, info)
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	files, err := d.listFiles(ctx, info)
	if err != nil {
		logger.Warning(logger.CategoryModel, "Cannot list %s (%v), using default file set", info.Repo, err)
		files = fallbackFiles
	}

	tracker := newTracker(info.SizeMB, folderSize(target), d.Interval, progress)
	tracker.report(true)

	for _, file := range files {
		dest := filepath.Join(target, filepath.FromSlash(file))
		if !strings.HasPrefix(dest, target+string(os.PathSeparator)) {
			logger.Warning(logger.CategoryModel, "Skipping suspicious file name %q", file)
			continue
		}
		if st, err := os.Stat(dest); err == nil && st.Size() > 0 {
			continue
		}
		logger.Info(logger.CategoryModel, "Downloading %s/%s", info.Repo, file)
		err := d.downloadFile(ctx, info, file, dest, tracker)
		if errors.Is(err, errFileMissing) && !isRequired(file) {
			logger.Warning(logger.CategoryModel, "Optional file %s not on hub, skipping", file)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", file, err)
		}
	}

	if missing := MissingFiles(modelsDir, info); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrModelIncomplete, strings.Join(missing, ", "))
	}

	tracker.finish()
	logger.Info(logger.CategoryModel, "Model %s ready in %s", info.Name, target)
	return nil
}

func (d *Downloader) downloadFile(ctx context.Context, info Info, file, dest string, tracker *tracker) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.fileURL(info, file), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errFileMissing
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	partial := dest + ".part"
	out, err := os.Create(partial)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, io.TeeReader(resp.Body, tracker))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		// Clean up the partial file on error
		os.Remove(partial)
		return err
	}

	return os.Rename(partial, dest)
}

func isRequired(file string) bool {
	for _, name := range RequiredFiles {
		if file == name {
			return true
		}
	}
	return false
}

// tracker counts downloaded bytes and throttles progress callbacks
type tracker struct {
	mu           sync.Mutex
	estimateMB   float64
	downloaded   int64
	lastBytes    int64
	lastReported time.Time
	interval     time.Duration
	callback     ProgressFunc
	now          func() time.Time
}

func newTracker(estimateMB float64, existing int64, interval time.Duration, callback ProgressFunc) *tracker {
	return &tracker{
		estimateMB: estimateMB,
		downloaded: existing,
		lastBytes:  existing,
		interval:   interval,
		callback:   callback,
		now:        time.Now,
	}
}

// Write implements io.Writer for use with io.TeeReader
func (t *tracker) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.downloaded += int64(len(p))
	t.mu.Unlock()
	t.report(false)
	return len(p), nil
}

func (t *tracker) report(force bool) {
	t.mu.Lock()
	now := t.now()
	elapsed := now.Sub(t.lastReported)
	if !force && elapsed < t.interval {
		t.mu.Unlock()
		return
	}

	downloadedMB := float64(t.downloaded) / 1024 / 1024
	speed := 0.0
	if !t.lastReported.IsZero() && elapsed > 0 {
		speed = float64(t.downloaded-t.lastBytes) / 1024 / 1024 / elapsed.Seconds()
	}
	fraction := 0.0
	if t.estimateMB > 0 {
		fraction = downloadedMB / t.estimateMB
	}
	if fraction > 0.99 {
		fraction = 0.99
	}

	t.lastReported = now
	t.lastBytes = t.downloaded
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(Progress{DownloadedMB: downloadedMB, SpeedMBs: speed, Fraction: fraction})
	}
}

func (t *tracker) finish() {
	t.mu.Lock()
	downloadedMB := float64(t.downloaded) / 1024 / 1024
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(Progress{DownloadedMB: downloadedMB, Fraction: 1})
	}
}

// folderSize sums the sizes of all regular files below dir
func folderSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
