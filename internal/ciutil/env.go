package ciutil

import (
	"log/slog"
	"net/url"
	"os"
)

// Environment variables read by this package.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"

	// EnvTestDatabaseURL is the preferred test database variable.
	EnvTestDatabaseURL = "LEXICARD_TEST_DATABASE_URL"
	// EnvDatabaseURL is accepted as a fallback.
	EnvDatabaseURL = "DATABASE_URL"
)

// IsCI reports whether the process runs under a CI provider.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != ""
}

// TestDatabaseURL returns the first non-empty of EnvTestDatabaseURL and
// EnvDatabaseURL, or "" when neither is set.
func TestDatabaseURL(logger *slog.Logger) string {
	for i, name := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if i > 0 && logger != nil {
			logger.Warn("using fallback database URL variable",
				"used_var", name,
				"preferred_var", EnvTestDatabaseURL,
				"value", MaskDatabaseURL(val))
		}
		return val
	}
	return ""
}

// MaskDatabaseURL hides the password of a connection URL. Values that do
// not parse as URLs are replaced entirely.
func MaskDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "****"
	}
	return u.Redacted()
}
