package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is validated via filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads, defaults and validates configuration from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" yields a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// ResolveConfigPath resolves a configuration file path, checking common locations.
func ResolveConfigPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("config file not found: %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}

	etcPath := filepath.Join(string(filepath.Separator), "etc", "rdfproxy")
	commonPaths := []string{
		filepath.Join("configs", path),
		filepath.Join(etcPath, path),
	}
	if home, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(home, ".rdfproxy", path))
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("config file not found: %s", path)
}
