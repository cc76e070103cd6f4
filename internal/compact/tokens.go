package compact

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// precisionEncoding lazily constructs the cl100k_base encoding the first
// time precise counting is needed. Construction can fail (e.g. no network
// access to fetch the BPE ranks file on first run in a sandboxed
// environment); EstimateTokens falls back to the character-based estimate
// whenever it does.
func precisionEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// EstimateTokens returns an approximate token count for text. When the
// tiktoken encoder is available it returns an exact BPE token count;
// otherwise it falls back to ceil(len(text)/4).
func EstimateTokens(text string) int {
	if enc := precisionEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return roughEstimate(text)
}

// roughEstimate is the always-available character-based fallback, kept as
// its own function so tests can exercise it directly regardless of
// whether the tiktoken encoder initialized in this environment.
func roughEstimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// WouldExceed reports whether text's estimated token count exceeds 80% of
// limit, the threshold at which a caller should compact before sending.
func WouldExceed(text string, limit int) bool {
	if limit <= 0 {
		return false
	}
	return float64(EstimateTokens(text)) > 0.8*float64(limit)
}
