package security

import (
	"net/netip"
	"net/url"
	"strings"
)

// allowedExtensions are payload suffixes accepted without any path
// marker. Matched against the path and the raw query.
var allowedExtensions = []string{".unitypackage", ".zip", ".tar.gz"}

// allowedMarkers are path fragments typical of release/attachment
// hosting.
var allowedMarkers = []string{"/download", "/releases/", "/attachments/"}

// hostingPlatforms are hosts whose /releases/ and /download/ URLs are
// accepted even without an extension match.
var hostingPlatforms = []string{"github.com", "gitlab.com"}

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
}

// Permitted reports whether a catalog download URL is acceptable. Pure,
// no network access. A URL passes only if it is absolute, uses http or
// https, does not target a loopback or private host (unless
// allowPrivateHosts, set when the catalog source itself is private),
// and its path looks like a real package/release/attachment URL.
func Permitted(rawURL string, allowPrivateHosts bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !u.IsAbs() || u.Host == "" {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if !allowPrivateHosts && isPrivateHost(u.Hostname()) {
		return false
	}

	return pathPermitted(u)
}

// isPrivateHost classifies loopback names and RFC1918/loopback IP
// literals. Hostnames that merely resolve to private addresses are not
// detected; the check is purely syntactic.
func isPrivateHost(hostname string) bool {
	lower := strings.ToLower(hostname)
	if lower == "localhost" {
		return true
	}

	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return false
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func pathPermitted(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	query := strings.ToLower(u.RawQuery)

	for _, ext := range allowedExtensions {
		if strings.HasSuffix(path, ext) || strings.HasSuffix(query, ext) {
			return true
		}
	}

	for _, marker := range allowedMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}

	host := strings.ToLower(u.Hostname())
	for _, platform := range hostingPlatforms {
		if host == platform || strings.HasSuffix(host, "."+platform) {
			if strings.Contains(path, "/releases/") || strings.Contains(path, "/download/") {
				return true
			}
		}
	}

	return false
}
