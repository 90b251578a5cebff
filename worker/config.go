package worker

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	internalstrings "github.com/amonks/rail/internal/strings"
)

// DefaultPort is used when no worker address is configured.
const DefaultPort = 8000

// ResolveURL normalizes a configured worker address into a base URL.
// It accepts a full URL, host:port, or a bare port; blank selects the
// default local worker.
func ResolveURL(addr string) (string, error) {
	trimmed := internalstrings.TrimSpace(addr)
	if trimmed == "" {
		return fmt.Sprintf("http://127.0.0.1:%d", DefaultPort), nil
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Host == "" {
			return "", fmt.Errorf("invalid worker url %q", trimmed)
		}
		return internalstrings.TrimTrailingSlash(trimmed), nil
	}
	if strings.Contains(trimmed, ":") {
		return "http://" + internalstrings.TrimTrailingSlash(trimmed), nil
	}
	port, err := strconv.Atoi(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid port %q", trimmed)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("port out of range: %d", port)
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}
