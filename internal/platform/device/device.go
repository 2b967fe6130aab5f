// Package device turns a User-Agent header into the short description recorded
// on audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent returns "<browser> on <os>", or "Unknown Device" when the
// header is empty.
func ParseUserAgent(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return "Unknown Device"
	}
	ua := useragent.New(header)

	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := strings.TrimSpace(ua.OS())
	if os == "" {
		os = strings.TrimSpace(ua.Platform())
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
