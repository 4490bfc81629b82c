// Package protect decides whether a branch name is exempt from destructive
// operations according to an ordered list of patterns.
package protect

import (
	"regexp"
	"strings"
)

// IsProtected reports whether name matches any of patterns. Patterns are
// evaluated in order and the first match wins:
//
//   - "prefix*"  matches any name starting with prefix; for "dir/*" the
//     bare "dir" matches as well
//   - "a*b"      is a glob; each * matches any run of characters
//   - "name"     matches exactly (case-sensitive)
//
// An empty pattern list protects nothing.
func IsProtected(name string, patterns []string) bool {
	for _, p := range patterns {
		if Match(name, p) {
			return true
		}
	}
	return false
}

// Match reports whether name matches a single pattern.
func Match(name, pattern string) bool {
	switch {
	case strings.HasSuffix(pattern, "*"):
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(name, prefix) {
			return true
		}
		return strings.HasSuffix(prefix, "/") && name == strings.TrimSuffix(prefix, "/")
	case strings.Contains(pattern, "*"):
		return GlobToRegexp(pattern).MatchString(name)
	default:
		return name == pattern
	}
}

// GlobToRegexp translates a glob in which * is the only wildcard into an
// anchored regular expression. Every other character is matched literally.
func GlobToRegexp(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// StripRemote returns a remote-tracking branch name without its remote
// prefix ("origin/release/1.0" becomes "release/1.0").
func StripRemote(name string) string {
	if _, rest, ok := strings.Cut(name, "/"); ok {
		return rest
	}
	return name
}

// IsProtectedRemote applies IsProtected to a remote-tracking branch name
// with its remote prefix removed.
func IsProtectedRemote(name string, patterns []string) bool {
	return IsProtected(StripRemote(name), patterns)
}
