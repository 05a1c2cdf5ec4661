package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

// tarballURL rebuilds the absolute download URL the wire protocol expects
// dist.tarball to carry. There is no fixed configured public host, so
// scheme/host/port are derived from the incoming request itself.
func tarballURL(r *http.Request, pkg, baseFileName string) string {
	scheme := requestScheme(r)
	host := requestHostWithoutDefaultPort(r, scheme)
	userinfo := ""
	if r.URL.User != nil && r.URL.User.String() != "" {
		userinfo = r.URL.User.String() + "@"
	}
	return fmt.Sprintf("%s://%s%s/%s/-/%s", scheme, userinfo, host, pkg, baseFileName)
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

func requestHostWithoutDefaultPort(r *http.Request, scheme string) string {
	host := r.Host
	hostname, port, found := strings.Cut(host, ":")
	if !found {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return hostname
	}
	return host
}
