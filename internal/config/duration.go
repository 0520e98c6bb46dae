package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a timeout in the configuration file. It is written as a Go
// duration string ("30s", "1h30m"); a bare integer is read as seconds.
// Blank and null values leave the field zero so that defaults apply.
type Duration time.Duration

// parseDuration reads a duration in either accepted form.
func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(time.Duration(secs) * time.Second), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use a value such as \"30s\" or \"2m\"", s)
	}
	return Duration(d), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*d = 0
		return nil
	}
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*d = 0
	case string:
		parsed, err := parseDuration(val)
		if err != nil {
			return err
		}
		*d = parsed
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	default:
		return fmt.Errorf("duration must be a string or a number of seconds, got %s", b)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// orDefault sets d to def when it is unset.
func (d *Duration) orDefault(def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}
