package bot

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseFeedURL validates a mirror feed URL and normalizes it to end with
// "/rss/". Format: http(s)://<mirror>/<account>/rss
func ParseFeedURL(args string) (string, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", fmt.Errorf("feed URL is required")
	}
	if fields := strings.Fields(s); len(fields) > 1 {
		return "", fmt.Errorf("expected a single feed URL")
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q", s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", s)
	}

	switch {
	case strings.HasSuffix(u.Path, "/rss/"):
	case strings.HasSuffix(u.Path, "/rss"):
		u.Path += "/"
	default:
		return "", fmt.Errorf("URL must end with /rss")
	}
	if strings.TrimSuffix(u.Path, "rss/") == "/" {
		return "", fmt.Errorf("URL %q has no account", s)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// ParseAccountArg extracts an account handle, with or without a leading @.
func ParseAccountArg(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return "", fmt.Errorf("account is required")
	}
	account := strings.TrimPrefix(fields[0], "@")
	if account == "" || strings.ContainsAny(account, "/@") {
		return "", fmt.Errorf("invalid account %q", fields[0])
	}
	return account, nil
}
