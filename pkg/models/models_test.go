package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installFiles(t *testing.T, modelsDir string, info Info, files ...string) {
	t.Helper()
	dir := Path(modelsDir, info)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644))
	}
}

func TestLookup(t *testing.T) {
	info, err := Lookup("base")
	require.NoError(t, err)
	assert.Equal(t, "Base", info.Name)
	assert.Equal(t, "Systran/faster-whisper-base", info.Repo)

	info, err = Lookup("MEDIUM")
	require.NoError(t, err)
	assert.Equal(t, "medium", info.ID)

	_, err = Lookup("large")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestNamesOrder(t *testing.T) {
	assert.Equal(t, []string{"Tiny", "Base", "Small", "Medium"}, Names())
}

func TestIsReady(t *testing.T) {
	dir := t.TempDir()
	info, _ := Lookup("Tiny")

	assert.False(t, IsReady(dir, info))
	assert.Equal(t, RequiredFiles, MissingFiles(dir, info))

	installFiles(t, dir, info, "config.json", "vocabulary.txt")
	assert.False(t, IsReady(dir, info))
	assert.Equal(t, []string{"model.bin"}, MissingFiles(dir, info))

	installFiles(t, dir, info, "model.bin")
	assert.True(t, IsReady(dir, info))
}

func TestListReportsEveryModel(t *testing.T) {
	dir := t.TempDir()
	small, _ := Lookup("Small")
	installFiles(t, dir, small, RequiredFiles...)

	statuses := List(dir)
	require.Len(t, statuses, len(Catalog))
	for _, st := range statuses {
		assert.Equal(t, st.Name == "Small", st.Ready, st.Name)
		assert.Equal(t, filepath.Join(dir, st.ID), st.Path)
	}
}

func TestManualInstallHelp(t *testing.T) {
	info, _ := Lookup("Base")
	text := ManualInstallHelp("/data/models", "https://hf.example/", info)

	assert.Contains(t, text, "https://hf.example/Systran/faster-whisper-base")
	assert.Contains(t, text, filepath.Join("/data/models", "base"))
	assert.Contains(t, text, "- vocabulary.txt")
}

// fakeHub serves a tiny repository in the hub layout
func fakeHub(t *testing.T, files map[string]string, listing bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/models/") {
			if !listing {
				http.NotFound(w, r)
				return
			}
			var out repoListing
			for name := range files {
				out.Siblings = append(out.Siblings, struct {
					Filename string `json:"rfilename"`
				}{name})
			}
			out.Siblings = append(out.Siblings, struct {
				Filename string `json:"rfilename"`
			}{".gitattributes"})
			json.NewEncoder(w).Encode(out)
			return
		}
		idx := strings.Index(r.URL.Path, "/resolve/main/")
		if idx < 0 {
			http.NotFound(w, r)
			return
		}
		body, ok := files[r.URL.Path[idx+len("/resolve/main/"):]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
}

func TestCheckSource(t *testing.T) {
	hub := fakeHub(t, map[string]string{"config.json": "{}"}, true)
	defer hub.Close()
	info, _ := Lookup("Tiny")

	d := NewDownloader(hub.URL, hub.Client())
	assert.NoError(t, d.CheckSource(context.Background(), info))

	missing := fakeHub(t, map[string]string{}, true)
	defer missing.Close()
	err := NewDownloader(missing.URL, missing.Client()).CheckSource(context.Background(), info)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestDownloadUsesListing(t *testing.T) {
	files := map[string]string{
		"config.json":    `{"a":1}`,
		"vocabulary.txt": "hello\nworld",
		"model.bin":      strings.Repeat("w", 4096),
		"README.md":      "readme",
	}
	hub := fakeHub(t, files, true)
	defer hub.Close()

	dir := t.TempDir()
	info, _ := Lookup("Tiny")

	var mu sync.Mutex
	var reports []Progress
	d := NewDownloader(hub.URL, hub.Client())
	d.Interval = 0
	err := d.Download(context.Background(), dir, info, func(p Progress) {
		mu.Lock()
		reports = append(reports, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.True(t, IsReady(dir, info))
	data, err := os.ReadFile(filepath.Join(Path(dir, info), "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
	_, err = os.Stat(filepath.Join(Path(dir, info), ".gitattributes"))
	assert.True(t, os.IsNotExist(err), "dotfiles are skipped")

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, 1.0, last.Fraction)
	for _, p := range reports[:len(reports)-1] {
		assert.LessOrEqual(t, p.Fraction, 0.99)
	}
}

func TestDownloadFallbackFileSetAndIncomplete(t *testing.T) {
	hub := fakeHub(t, map[string]string{"config.json": "{}", "vocabulary.txt": "v"}, false)
	defer hub.Close()

	dir := t.TempDir()
	info, _ := Lookup("Base")

	err := NewDownloader(hub.URL, hub.Client()).Download(context.Background(), dir, info, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.bin")

	_, statErr := os.Stat(filepath.Join(Path(dir, info), "model.bin.part"))
	assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestDownloadSkipsExistingFiles(t *testing.T) {
	hub := fakeHub(t, map[string]string{"config.json": "new", "vocabulary.txt": "v", "model.bin": "m"}, true)
	defer hub.Close()

	dir := t.TempDir()
	info, _ := Lookup("Small")
	installFiles(t, dir, info, "config.json")

	require.NoError(t, NewDownloader(hub.URL, hub.Client()).Download(context.Background(), dir, info, nil))

	data, err := os.ReadFile(filepath.Join(Path(dir, info), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data), "existing files are not re-downloaded")
}
