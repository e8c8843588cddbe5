package config

import (
	"os"
	"regexp"
	"strings"
)

// Settings files may reference environment variables as ${VAR} or, with a
// fallback for unset or empty variables, as ${VAR:-fallback}.
var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(?::-[^}]*)?\}`)

// ExpandEnv substitutes environment variable references in raw settings
// text. A reference without a fallback expands to the empty string when
// the variable is unset or empty; Validate catches anything that matters
// downstream.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, expandRef)
}

// expandRef resolves one ${...} reference, already validated by envRef.
func expandRef(ref string) string {
	name, fallback, _ := strings.Cut(ref[2:len(ref)-1], ":-")
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
