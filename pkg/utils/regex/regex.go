package regex

import (
	"fmt"
	"regexp"
	"strings"
)

// CombinePatterns joins patterns into a single alternation.
func CombinePatterns(patterns []string) (*regexp.Regexp, error) {
	combined := "(?:" + strings.Join(patterns, ")|(?:") + ")"
	re, err := regexp.Compile(combined)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern set %v: %w", patterns, err)
	}
	return re, nil
}
