package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const fileHeader = "# waypoint configuration. Durations use Go syntax (5s, 72h).\n" +
	"# Every key can be overridden with WAYPOINT_<SECTION>_<KEY>.\n\n"

// WriteConfigOrdered writes settings as TOML. Map keys are emitted in sorted
// order so the file is stable across runs.
func WriteConfigOrdered(settings map[string]any, path string) error {
	if settings == nil {
		return fmt.Errorf("settings are nil")
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)

	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
