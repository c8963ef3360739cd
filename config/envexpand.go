package config

import (
	"os"
	"regexp"
)

// envRef matches ${NAME} and ${NAME:-fallback} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a raw config
// document before decoding. ${NAME} becomes the variable's value;
// ${NAME:-fallback} falls back when the variable is unset or empty.
// An unset variable without a fallback becomes the empty string, so
// the miss surfaces later as a construction error (an empty backend
// URL, say) rather than failing expansion.
func ExpandEnv(doc string) string {
	return envRef.ReplaceAllStringFunc(doc, func(ref string) string {
		groups := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(groups[1]); v != "" {
			return v
		}
		return groups[2]
	})
}
