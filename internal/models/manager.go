package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/emmett/voxremote/internal/stt"
)

// Model represents a Vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string
}

// Available models from Vosk
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
	},
	{
		Name:        "vosk-model-small-en-in-0.4",
		Language:    "en-IN",
		Size:        "36M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-in-0.4.zip",
		Description: "Lightweight Indian English model",
	},
	{
		Name:        "vosk-model-small-de-0.15",
		Language:    "de-DE",
		Size:        "45M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-de-0.15.zip",
		Description: "Lightweight German model",
	},
	{
		Name:        "vosk-model-small-fr-0.22",
		Language:    "fr-FR",
		Size:        "41M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-fr-0.22.zip",
		Description: "Lightweight French model",
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "vosk-model-small-en-us-0.15"

const defaultMarker = ".default_model"

// Manager owns a directory of downloaded models.
type Manager struct {
	fs     afero.Fs
	dir    string
	client *http.Client
}

// NewManager returns a manager rooted at dir on fs.
func NewManager(fs afero.Fs, dir string) *Manager {
	return &Manager{fs: fs, dir: dir, client: http.DefaultClient}
}

// DefaultDir returns ./models under the working directory.
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "models"), nil
}

// Dir returns the models directory.
func (m *Manager) Dir() string {
	return m.dir
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// DefaultModel returns the configured default model name, or
// DefaultModelName when none was set.
func (m *Manager) DefaultModel() (string, error) {
	data, err := afero.ReadFile(m.fs, filepath.Join(m.dir, defaultMarker))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultModelName, nil
	}
	return name, nil
}

// SetDefaultModel records name as the default model.
func (m *Manager) SetDefaultModel(name string) error {
	if FindModel(name) == nil {
		return fmt.Errorf("unknown model: %s", name)
	}
	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if err := afero.WriteFile(m.fs, filepath.Join(m.dir, defaultMarker), []byte(name), 0644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// IsDownloaded checks if a model directory exists.
func (m *Manager) IsDownloaded(name string) (bool, error) {
	info, err := m.fs.Stat(filepath.Join(m.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Path returns the directory of a downloaded model.
func (m *Manager) Path(name string) (string, error) {
	downloaded, err := m.IsDownloaded(name)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", name)
	}
	return filepath.Join(m.dir, name), nil
}

// ListDownloaded lists the downloaded models by name.
func (m *Manager) ListDownloaded() ([]string, error) {
	exists, err := afero.DirExists(m.fs, m.dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model-") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Locate returns the path of the model to use for locale. The default model
// wins when it is downloaded and speaks the locale; otherwise the first
// downloaded model for the locale is used, then one for the same language.
func (m *Manager) Locate(locale string) (string, error) {
	downloaded, err := m.ListDownloaded()
	if err != nil {
		return "", err
	}
	if len(downloaded) == 0 {
		return "", fmt.Errorf("%w: no models in %s", stt.ErrNoModel, m.dir)
	}

	def, _ := m.DefaultModel()
	candidates := make([]string, 0, len(downloaded)+1)
	candidates = append(candidates, def)
	candidates = append(candidates, downloaded...)

	// Exact locale first, then language only.
	for _, match := range []func(string) bool{
		func(lang string) bool { return sameLocale(lang, locale) },
		func(lang string) bool { return sameLanguage(lang, locale) },
	} {
		for _, name := range candidates {
			ok, err := m.IsDownloaded(name)
			if err != nil || !ok {
				continue
			}
			if match(languageOf(name)) {
				return filepath.Join(m.dir, name), nil
			}
		}
	}
	return "", fmt.Errorf("%w: none installed for locale %q", stt.ErrNoModel, locale)
}

// languageOf returns the catalog language of a model, falling back to the
// language segment of its directory name.
func languageOf(name string) string {
	if model := FindModel(name); model != nil {
		return model.Language
	}
	// vosk-model-[small-]<lang>[-<region>]-<version>
	parts := strings.Split(strings.TrimPrefix(name, "vosk-model-"), "-")
	if len(parts) > 0 && parts[0] == "small" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) > 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	return parts[0]
}

func canonicalLocale(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
}

func sameLocale(a, b string) bool {
	return canonicalLocale(a) == canonicalLocale(b)
}

func sameLanguage(a, b string) bool {
	la, _, _ := strings.Cut(canonicalLocale(a), "-")
	lb, _, _ := strings.Cut(canonicalLocale(b), "-")
	return la != "" && la == lb
}

// Download fetches a model archive and extracts it into the models
// directory.
func (m *Manager) Download(ctx context.Context, name string, progress func(downloaded, total int64)) error {
	model := FindModel(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	zipPath := filepath.Join(m.dir, name+".zip")
	defer m.fs.Remove(zipPath)

	out, err := m.fs.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return fmt.Errorf("download error: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := m.extract(zipPath); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}
	return nil
}

// extract unpacks zipPath into the models directory.
func (m *Manager) extract(zipPath string) error {
	f, err := m.fs.Open(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	root := filepath.Clean(m.dir) + string(os.PathSeparator)
	for _, zf := range r.File {
		fpath := filepath.Join(m.dir, zf.Name)
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if zf.FileInfo().IsDir() {
			if err := m.fs.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}
		if err := m.fs.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return err
		}
		if err := m.writeEntry(zf, fpath); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writeEntry(zf *zip.File, fpath string) error {
	outFile, err := m.fs.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, zf.Mode())
	if err != nil {
		return err
	}
	defer outFile.Close()

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(outFile, rc)
	return err
}
