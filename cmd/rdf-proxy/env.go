package main

import (
	"os"
	"strconv"
	"strings"
)

// envPrefix namespaces every environment variable rdf-proxy reads.
const envPrefix = "RDFPROXY_"

// lookupEnv returns the trimmed value of RDFPROXY_<name>. Blank values
// count as unset.
func lookupEnv(name string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(envPrefix + name))
	return value, value != ""
}

// envString returns RDFPROXY_<name> or def.
func envString(name, def string) string {
	if value, ok := lookupEnv(name); ok {
		return value
	}
	return def
}

// envBool returns RDFPROXY_<name> as a boolean. Besides the strconv forms
// it understands yes/no and on/off. Unparseable values yield def.
func envBool(name string, def bool) bool {
	value, ok := lookupEnv(name)
	if !ok {
		return def
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	switch strings.ToLower(value) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	return def
}
