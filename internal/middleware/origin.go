package middleware

import (
	"net/url"
	"strings"
)

// OriginAllowed accepts localhost origins during development and any http(s)
// origin whose host ends with one of suffixes.
func OriginAllowed(suffixes []string) func(origin string) bool {
	return func(origin string) bool {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true
		}
		u, err := url.Parse(low)
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		host := u.Hostname()
		for _, s := range suffixes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && strings.HasSuffix(host, s) {
				return true
			}
		}
		return false
	}
}
