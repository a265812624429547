package selector

import (
	"regexp"
	"strings"
)

// IsRelayFrame reports whether an iframe with the given src and class
// attribute is the message relay frame rather than activity content.
func IsRelayFrame(rules FrameRules, relaySrc *regexp.Regexp, src, class string) bool {
	if relaySrc != nil && relaySrc.MatchString(src) {
		return true
	}
	classes := strings.Fields(class)
	for _, rc := range rules.RelayClasses {
		for _, c := range classes {
			if strings.EqualFold(c, rc) {
				return true
			}
		}
	}
	return false
}
