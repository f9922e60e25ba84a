package ffmpeg

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// WindowsArchiveURL is the essentials build used on Windows
const WindowsArchiveURL = "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.zip"

// DefaultArchiveURL returns the archive for this platform, or "" when none is known
func DefaultArchiveURL() string {
	if runtime.GOOS == "windows" {
		return WindowsArchiveURL
	}
	return ""
}

// DownloadPage is opened by the "Direct Download" action
func DownloadPage() string {
	if url := DefaultArchiveURL(); url != "" {
		return url
	}
	return "https://ffmpeg.org/download.html"
}

// Installer downloads an ffmpeg ZIP build and unpacks the binary
type Installer struct {
	URL     string
	Client  *http.Client
	TempDir string
}

// NewInstaller creates an installer; an empty url selects the platform default
func NewInstaller(url string, client *http.Client) *Installer {
	if url == "" {
		url = DefaultArchiveURL()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Installer{URL: url, Client: client}
}

// Install places the ffmpeg binary from the archive into baseDir and returns its path
func (i *Installer) Install(ctx context.Context, baseDir string) (string, error) {
	if i.URL == "" {
		return "", ErrPlatformNotSupported
	}

	archive, err := os.CreateTemp(i.TempDir, "ffmpeg-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temp archive: %w", err)
	}
	archivePath := archive.Name()
	defer os.Remove(archivePath)

	logger.Info(logger.CategoryFFmpeg, "Downloading ffmpeg archive from %s", i.URL)
	size, err := i.download(ctx, archive)
	closeErr := archive.Close()
	if err != nil {
		return "", err
	}
	if closeErr != nil {
		return "", closeErr
	}

	if err := checkZipMagic(archivePath); err != nil {
		return "", err
	}

	target, err := extractBinary(archivePath, size, baseDir)
	if err != nil {
		return "", err
	}
	logger.Info(logger.CategoryFFmpeg, "Installed ffmpeg to %s", target)
	return target, nil
}

func (i *Installer) download(ctx context.Context, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.URL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mediascribe-FFmpeg-Installer/1.0")

	resp, err := i.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download ffmpeg: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("failed to download ffmpeg: HTTP %s", resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download ffmpeg: %w", err)
	}
	return n, nil
}

// checkZipMagic rejects captive portals and proxy error pages early
func checkZipMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 120)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	if n >= 4 && bytes.HasPrefix(head, []byte("PK")) {
		return nil
	}

	preview := strings.TrimSpace(strings.ToValidUTF8(string(head), ""))
	if preview == "" {
		preview = "binary/unknown"
	}
	return fmt.Errorf("%w. Received: %s. Check proxy type/host/port", ErrNotZip, preview)
}

// isBinaryMember matches .../bin/ffmpeg(.exe) regardless of separators or case
func isBinaryMember(name string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return strings.HasSuffix(normalized, "/bin/"+strings.ToLower(BinaryName()))
}

func extractBinary(archivePath string, size int64, baseDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := zip.NewReader(f, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotZip, err)
	}

	for _, member := range reader.File {
		if !isBinaryMember(member.Name) {
			continue
		}

		src, err := member.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", member.Name, err)
		}
		defer src.Close()

		target := filepath.Join(baseDir, BinaryName())
		partial := target + ".part"
		dst, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", partial, err)
		}
		_, err = io.Copy(dst, src)
		closeErr := dst.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(partial)
			return "", fmt.Errorf("failed to extract ffmpeg: %w", err)
		}
		if err := os.Rename(partial, target); err != nil {
			os.Remove(partial)
			return "", err
		}
		return target, nil
	}

	return "", ErrBinaryNotInArchive
}
