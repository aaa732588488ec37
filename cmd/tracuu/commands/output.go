package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nexconsult/tracuunnt-api/internal/scraper"
)

const resultFile = "result.json"

// mergeResults adds env to the JSON object in <dir>/result.json, creating
// the folder and file when missing. Entries with the same criteria are
// replaced. The file is rewritten through a temporary file.
func mergeResults(dir string, env scraper.Envelope) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}
	path := filepath.Join(dir, resultFile)

	merged := make(map[string]interface{})
	data, err := os.ReadFile(path)
	switch {
	case err == nil && len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &merged); err != nil {
			return "", fmt.Errorf("existing %s is not a JSON object: %w", path, err)
		}
	case err != nil && !os.IsNotExist(err):
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	for k, v := range env {
		merged[k] = v
	}

	tmp, err := os.CreateTemp(dir, resultFile+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := scraper.WriteJSON(tmp, merged); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}
