package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Options are the tunable policy knobs of the similarity engine. The default
// values are operational policy, not derived from a formal model; callers may
// recalibrate them.
type Options struct {
	// PhoneticBoost is added when both names collapse to the same non-trivial
	// code under both phonetic encodings.
	PhoneticBoost float64 `yaml:"phonetic_boost"`
	// TokenBoost is added when token coverage between multi-word names meets
	// TokenCoverageThreshold.
	TokenBoost float64 `yaml:"token_boost"`
	// TokenMatchThreshold is the per-token similarity needed for two tokens
	// to count as matched during token-overlap analysis.
	TokenMatchThreshold float64 `yaml:"token_match_threshold"`
	// TokenCoverageThreshold is the fraction of tokens that must match for
	// the token boost to apply.
	TokenCoverageThreshold float64 `yaml:"token_coverage_threshold"`
}

// DefaultOptions returns the standard boost magnitudes and thresholds.
func DefaultOptions() Options {
	return Options{
		PhoneticBoost:          0.10,
		TokenBoost:             0.05,
		TokenMatchThreshold:    0.9,
		TokenCoverageThreshold: 0.7,
	}
}

// Engine computes a similarity score in [0.0, 1.0] between two names from
// edit-distance, phonetic, and token-overlap signals. Engines are stateless
// and safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates a similarity engine with the given options. A zero
// Options value falls back to the defaults; individual fields may be tuned
// to zero deliberately.
func NewEngine(opts Options) *Engine {
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	return &Engine{opts: opts}
}

// Similarity normalizes both names and scores them. Identical normalized
// names score exactly 1.0; two empty names score 0.0. The score is symmetric
// in its arguments.
func (e *Engine) Similarity(a, b string) float64 {
	return e.score(NormalizeName(a), NormalizeName(b), true)
}

// score compares two already-normalized names. Token-overlap analysis calls
// back into score with tokenBoost disabled, so recursion is exactly one level
// deep: token-vs-token comparisons use base plus phonetic signals only.
func (e *Engine) score(a, b string, tokenBoost bool) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	s := 1.0 - float64(distance)/float64(maxLen)
	if s < 0 {
		s = 0
	}

	if e.phoneticMatch(a, b) {
		s += e.opts.PhoneticBoost
	}
	if tokenBoost && e.tokenOverlap(a, b) {
		s += e.opts.TokenBoost
	}

	if s > 1.0 {
		s = 1.0
	}
	return s
}

// phoneticMatch requires agreement under both encodings, and rejects
// degenerate codes so that short vowel-only fragments never collide.
func (e *Engine) phoneticMatch(a, b string) bool {
	sa, sb := Soundex(a), Soundex(b)
	if sa != sb || soundexDegenerate(sa) {
		return false
	}
	ma, mb := Metaphone(a), Metaphone(b)
	return ma == mb && ma != ""
}

// tokenOverlap reports whether enough tokens of the shorter name match
// tokens of the longer one. Rewards multi-word reordering and partial
// matches ("john michael smith" vs "smith john").
func (e *Engine) tokenOverlap(a, b string) bool {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	total := len(tokensA)
	if len(tokensB) > total {
		total = len(tokensB)
	}
	if total < 2 {
		return false
	}

	shorter, longer := tokensA, tokensB
	if len(tokensB) < len(tokensA) {
		shorter, longer = tokensB, tokensA
	}

	matched := 0
	for _, token := range shorter {
		for _, other := range longer {
			if e.score(token, other, false) >= e.opts.TokenMatchThreshold {
				matched++
				break
			}
		}
	}
	return float64(matched)/float64(total) >= e.opts.TokenCoverageThreshold
}
