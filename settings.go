package tidedb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nholden/tidedb/core"
)

// Settings configures a process or a connection. Later settings maps
// override earlier ones, and connection settings override process
// settings.
//
// Recognized process settings:
//   - log_dir: directory for the process event log (default: os.TempDir())
//   - log_file_max_count: rotated log files to keep (default: 2)
//   - log_file_size_limit: size per log file, e.g. "100M" (default: 100M)
//
// Recognized connection settings:
//   - s3_access_key_id, s3_secret_access_key, s3_region, s3_endpoint:
//     credentials for COPY FROM 's3://...' sources
type Settings map[string]string

// SettingsFromFile loads settings from a TOML file of flat key/value
// pairs.
func SettingsFromFile(path string) (Settings, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, core.Errorf(core.KindIncompatibleFormat, "settings file %q: %v", path, err)
	}
	settings := make(Settings, len(raw))
	for key, value := range raw {
		settings[key] = fmt.Sprint(value)
	}
	return settings, nil
}

func mergeSettings(layers ...Settings) Settings {
	merged := Settings{}
	for _, layer := range layers {
		for key, value := range layer {
			merged[key] = value
		}
	}
	return merged
}

func (s Settings) get(key, fallback string) string {
	if value, ok := s[key]; ok {
		return value
	}
	return fallback
}

func (s Settings) getInt(key string, fallback int) (int, error) {
	value, ok := s[key]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, core.Errorf(core.KindIncompatibleFormat, "setting %s: invalid count %q", key, value)
	}
	return n, nil
}

// parseSizeLimit reads a human size like "100M" or "1G" and returns
// whole megabytes, the unit the log rotation layer works in. Sizes
// below one megabyte round up.
func parseSizeLimit(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, core.Errorf(core.KindIncompatibleFormat, "empty size limit")
	}
	original := value
	multiplier := int64(1)
	switch value[len(value)-1] {
	case 'k', 'K':
		multiplier = 1 << 10
		value = value[:len(value)-1]
	case 'm', 'M':
		multiplier = 1 << 20
		value = value[:len(value)-1]
	case 'g', 'G':
		multiplier = 1 << 30
		value = value[:len(value)-1]
	default:
		// bare number of bytes
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return 0, core.Errorf(core.KindIncompatibleFormat, "invalid size limit %q", original)
	}
	bytes := n * multiplier
	megabytes := (bytes + (1<<20 - 1)) >> 20
	if megabytes < 1 {
		megabytes = 1
	}
	return int(megabytes), nil
}
