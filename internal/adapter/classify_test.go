package adapter

import (
	"regexp"
	"testing"
)

func TestClassify_RateLimitPatterns(t *testing.T) {
	cases := []string{
		"Error: rate limit exceeded, please retry",
		"HTTP 429 Too Many Requests",
		"quota exceeded for this billing period",
		"model is currently overloaded",
		"请求过于频繁，请稍后再试",
	}
	for _, c := range cases {
		if got := Classify(c, nil); got != ErrorRateLimit {
			t.Errorf("Classify(%q) = %q, want %q", c, got, ErrorRateLimit)
		}
	}
}

func TestClassify_ContextExceededPatterns(t *testing.T) {
	cases := []string{
		"maximum context length is 128000 tokens",
		"this model's maximum context length exceeded",
		"上下文长度超出限制",
	}
	for _, c := range cases {
		if got := Classify(c, nil); got != ErrorContextExceeded {
			t.Errorf("Classify(%q) = %q, want %q", c, got, ErrorContextExceeded)
		}
	}
}

func TestClassify_Generic(t *testing.T) {
	if got := Classify("connection reset by peer", nil); got != ErrorGeneric {
		t.Errorf("Classify(generic) = %q, want %q", got, ErrorGeneric)
	}
}

func TestClassify_RuleOrderFirstMatchWins(t *testing.T) {
	rules := []ClassificationRule{
		{Pattern: DefaultClassificationRules[0].Pattern, Kind: ErrorRateLimit},
		{Pattern: regexp.MustCompile(`(?i)limit`), Kind: ErrorContextExceeded},
	}
	if got := Classify("rate limit hit", rules); got != ErrorRateLimit {
		t.Errorf("expected ErrorRateLimit, got %q", got)
	}
}
