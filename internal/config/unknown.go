package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys maps each config section to its valid keys.
var knownKeys = map[string]map[string]bool{
	"server": {
		"port": true, "docker_port": true, "read_header_timeout": true,
		"shutdown_timeout": true, "max_upload_size": true,
	},
	"auth": {
		"secret_key": true, "algorithm": true, "require_token": true, "token_ttl": true,
	},
	"google": {
		"client_id": true, "client_secret": true, "token_file": true,
		"api_endpoint": true, "request_timeout": true,
	},
	"tasks": {
		"ledger_enabled": true, "ledger_path": true,
	},
	"logging": {
		"log_level": true, "log_format": true,
	},
}

// knownSectionsList is the sorted list of section names for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownSectionsList = sortedKeys(knownKeys)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		errs = append(errs, buildKeyError(key))
	}

	return errors.Join(errs...)
}

// buildKeyError describes an unknown key. A top-level key is matched against
// section names (a common mistake is a key with no section header); a nested
// key is matched against the keys of its section.
func buildKeyError(key toml.Key) error {
	if len(key) == 1 {
		if suggestion := closestMatch(key[0], knownSectionsList); suggestion != "" {
			return fmt.Errorf("unknown config section %q; did you mean %q?", key[0], suggestion)
		}

		if section := sectionOf(key[0]); section != "" {
			return fmt.Errorf("config key %q must be inside the [%s] section", key[0], section)
		}

		return fmt.Errorf("unknown config key %q", key[0])
	}

	section, field := key[0], key[len(key)-1]

	keys, ok := knownKeys[section]
	if !ok {
		return fmt.Errorf("unknown config section %q", section)
	}

	if suggestion := closestMatch(field, sortedKeys(keys)); suggestion != "" {
		return fmt.Errorf("unknown config key %q in [%s]; did you mean %q?", field, section, suggestion)
	}

	return fmt.Errorf("unknown config key %q in [%s]", field, section)
}

// sectionOf returns the section that defines key, or "".
func sectionOf(key string) string {
	for _, section := range knownSectionsList {
		if knownKeys[section][key] {
			return section
		}
	}

	return ""
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
