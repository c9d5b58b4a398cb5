package lib

import (
	"net/url"
	"strings"

	"github.com/gravitational/trace"
)

// ParseBaseURL turns a backend address into the base URL every API path is
// resolved against. A missing scheme defaults to https.
func ParseBaseURL(addr string) (*url.URL, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, trace.BadParameter("backend address is empty")
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "https://" + addr
	}
	result, err := url.Parse(addr)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if result.Host == "" {
		return nil, trace.BadParameter("backend address %q has no host", addr)
	}
	if result.Scheme == "https" && result.Port() == "443" {
		// Cut off redundant :443
		result.Host = result.Hostname()
	}
	result.Path = strings.TrimRight(result.Path, "/")
	result.RawQuery = ""
	result.Fragment = ""
	return result, nil
}
