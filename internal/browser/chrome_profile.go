package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// writePreferences merges the download settings into the profile's
// Default/Preferences file: PDFs are saved, never shown in the viewer,
// and no save dialog is opened.
func writePreferences(userDataDir, downloadDir string) error {
	dir := filepath.Join(userDataDir, "Default")
	if err := ensureDir(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, "Preferences")

	prefs := map[string]any{}
	data, err := os.ReadFile(path) //nolint:gosec // profile path comes from config
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &prefs); err != nil {
			prefs = map[string]any{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	setPref(prefs, "download", "default_directory", downloadDir)
	setPref(prefs, "download", "prompt_for_download", false)
	setPref(prefs, "download", "directory_upgrade", true)
	setPref(prefs, "plugins", "always_open_pdf_externally", true)
	setPref(prefs, "savefile", "default_directory", downloadDir)

	out, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func setPref(prefs map[string]any, section, key string, value any) {
	m, ok := prefs[section].(map[string]any)
	if !ok {
		m = map[string]any{}
		prefs[section] = m
	}
	m[key] = value
}
