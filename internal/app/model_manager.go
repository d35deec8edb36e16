package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/emmett/voxremote/internal/models"
	"github.com/emmett/voxremote/internal/stt"
)

// ModelManager prints model catalog and download state for the CLI.
type ModelManager struct {
	models *models.Manager
	out    io.Writer
}

func NewModelManager(mgr *models.Manager) *ModelManager {
	return &ModelManager{models: mgr, out: os.Stdout}
}

func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models for download:")
	fmt.Fprintln(m.out)

	for i, model := range models.AvailableModels {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)

		downloaded, _ := m.models.IsDownloaded(model.Name)
		if downloaded {
			fmt.Fprintf(m.out, "   Status:   ✓ Downloaded\n")
		} else {
			fmt.Fprintf(m.out, "   Status:   Not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  voxremote -download-model <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := m.models.ListDownloaded()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintln(m.out, "No models downloaded yet.")
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "Use 'voxremote -list-models' to see available models")
		fmt.Fprintln(m.out, "Use 'voxremote -download-model <name>' to download a model")
		return nil
	}

	defaultName, _ := m.models.DefaultModel()
	fmt.Fprintf(m.out, "Downloaded models (%d):\n\n", len(downloaded))
	for i, name := range downloaded {
		fmt.Fprintf(m.out, "%d. %s", i+1, name)
		if name == defaultName {
			fmt.Fprint(m.out, " [DEFAULT]")
		}
		fmt.Fprintln(m.out)

		if path, err := m.models.Path(name); err == nil {
			fmt.Fprintf(m.out, "   Path: %s\n", path)
		}
	}
	return nil
}

func (m *ModelManager) Download(ctx context.Context, name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintln(m.out, "Use 'voxremote -list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := m.models.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		path, _ := m.models.Path(name)
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\n", name)
		fmt.Fprintf(m.out, "Location: %s\n", path)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Fprintf(m.out, "Description: %s\n\n", model.Description)

	err = m.models.Download(ctx, name, func(done, total int64) {
		if total <= 0 {
			fmt.Fprintf(m.out, "\rProgress: %d bytes", done)
			return
		}
		percent := float64(done) / float64(total) * 100
		fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, done, total)
	})
	if err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Fprintln(m.out)
	fmt.Fprintf(m.out, "✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

func (m *ModelManager) SetDefault(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintln(m.out, "Use 'voxremote -list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := m.models.SetDefaultModel(name); err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}

	fmt.Fprintf(m.out, "✓ Default model set to: %s\n", name)
	fmt.Fprintf(m.out, "  Language: %s\n", model.Language)

	downloaded, _ := m.models.IsDownloaded(name)
	if !downloaded {
		fmt.Fprintln(m.out, "Note: This model is not yet downloaded.")
		fmt.Fprintf(m.out, "Run 'voxremote -download-model %s' to download it.\n", name)
	}
	return nil
}

// Locator returns the model lookup for the recognizer. An explicit model
// name pins that model regardless of locale.
func (m *ModelManager) Locator(explicit string) (stt.Locator, error) {
	if explicit == "" {
		return m.models, nil
	}
	path, err := m.models.Path(explicit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (run 'voxremote -download-model %s')", stt.ErrNoModel, err, explicit)
	}
	return stt.LocatorFunc(func(string) (string, error) { return path, nil }), nil
}
