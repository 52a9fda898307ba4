// Package router classifies intercepted requests and answers them with the
// matching caching strategy. The caller always gets a response: network
// failures are turned into cached or synthetic answers.
package router

import (
	"net/http"
	"strings"
)

type Strategy int

const (
	// StrategyAPI is network-first with cache fallback.
	StrategyAPI Strategy = iota
	// StrategyStatic is cache-first for scripts, styles and images.
	StrategyStatic
	// StrategyNavigation is network-first with the offline page as last resort.
	StrategyNavigation
	// StrategyDefault is plain network with opportunistic caching.
	StrategyDefault
)

func (s Strategy) String() string {
	switch s {
	case StrategyAPI:
		return "api"
	case StrategyStatic:
		return "static"
	case StrategyNavigation:
		return "navigation"
	default:
		return "default"
	}
}

// Classify picks the strategy for r; the first matching rule wins.
func Classify(r *http.Request, apiPrefix string) Strategy {
	if apiPrefix != "" && strings.HasPrefix(r.URL.Path, apiPrefix) {
		return StrategyAPI
	}
	switch r.Header.Get("Sec-Fetch-Dest") {
	case "script", "style", "image":
		return StrategyStatic
	}
	if IsNavigation(r) {
		return StrategyNavigation
	}
	return StrategyDefault
}

// IsNavigation reports a full-page load.
func IsNavigation(r *http.Request) bool {
	return r.Header.Get("Sec-Fetch-Mode") == "navigate"
}
