// Package screener provides single-pass malicious-request pattern matching.
// It combines a set of regular expressions into one compiled matcher per
// category (request path, user agent) so that checking a request against
// many patterns costs one scan instead of one scan per pattern.
package screener

import (
	"fmt"
	"regexp"
	"strings"
)

// Config holds the pattern lists used to build a Screener. The path set is
// compiled as-given; the user-agent set is compiled case-insensitively.
// Empty lists are valid and produce a matcher that accepts nothing as
// malicious.
type Config struct {
	PathPatterns      []string
	UserAgentPatterns []string
}

// WithPathPattern returns a copy of cfg with pattern appended to the path set.
func (cfg Config) WithPathPattern(pattern string) Config {
	cfg.PathPatterns = append(append([]string{}, cfg.PathPatterns...), pattern)
	return cfg
}

// WithUserAgentPattern returns a copy of cfg with pattern appended to the
// user-agent set.
func (cfg Config) WithUserAgentPattern(pattern string) Config {
	cfg.UserAgentPatterns = append(append([]string{}, cfg.UserAgentPatterns...), pattern)
	return cfg
}

// Screener answers whether a request looks malicious, in one pass per
// pattern category. It is immutable and safe for concurrent use after
// construction.
type Screener struct {
	pathMatcher *regexp.Regexp
	uaMatcher   *regexp.Regexp
}

// New compiles cfg into a Screener. Construction fails with an error wrapping
// the offending pattern when any pattern does not compile as a regular
// expression (spec's InvalidPattern error kind).
func New(cfg Config) (*Screener, error) {
	pathMatcher, err := compileSet(cfg.PathPatterns, false)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern: %w", err)
	}
	uaMatcher, err := compileSet(cfg.UserAgentPatterns, true)
	if err != nil {
		return nil, fmt.Errorf("invalid user-agent pattern: %w", err)
	}
	return &Screener{pathMatcher: pathMatcher, uaMatcher: uaMatcher}, nil
}

// compileSet joins patterns into a single alternation so the resulting
// regexp evaluates every pattern in one scan, matching Rust's RegexSet
// semantics (Go's regexp package has no direct RegexSet equivalent). A nil
// matcher never matches anything, which is what an empty pattern list must
// produce.
func compileSet(patterns []string, caseInsensitive bool) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	grouped := make([]string, len(patterns))
	for i, p := range patterns {
		grouped[i] = "(?:" + p + ")"
	}
	joined := strings.Join(grouped, "|")
	if caseInsensitive {
		joined = "(?i)" + joined
	}
	return regexp.Compile(joined)
}

// IsMalicious returns true iff at least one compiled path pattern matches
// path, or at least one compiled user-agent pattern matches userAgent.
// User-agent matching is case-insensitive by construction; the input is
// neither copied nor mutated to achieve that.
func (s *Screener) IsMalicious(path, userAgent string) bool {
	if s.pathMatcher != nil && s.pathMatcher.MatchString(path) {
		return true
	}
	if s.uaMatcher != nil && s.uaMatcher.MatchString(userAgent) {
		return true
	}
	return false
}
