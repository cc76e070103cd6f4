// Package compact shrinks an oversized prompt through a fixed five-stage
// pipeline, preserving the instructions most likely to matter while
// dropping filler, duplication, and verbose code.
package compact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result is the outcome of a Compact call.
type Result struct {
	Compacted        string
	OriginalLen      int
	CompactedLen     int
	ReductionPercent float64
}

// minSentenceLen drops sentences shorter than this during duplicate
// elimination — too short to carry instructions, mostly stray punctuation.
const minSentenceLen = 3

// codeBlockThreshold is the body length (in characters) above which a
// fenced code block is summarized rather than kept whole.
const codeBlockThreshold = 500

// sentenceFloor is the minimum number of sentences aggressive
// summarization will retain, regardless of targetFraction, unless the
// input itself has fewer.
const sentenceFloor = 10

var whitespaceRun = regexp.MustCompile(`\s+`)

var sentenceSplit = regexp.MustCompile(`(?s)([^.!?]*[.!?]+)`)

var codeFence = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)\n```")

var actionVerbs = regexp.MustCompile(`(?i)\b(add|implement|create|fix|remove|update|refactor|write|ensure|verify|run|build|generate|validate|test)\b`)

var requirementLanguage = regexp.MustCompile(`(?i)\b(must|should|required|shall|need to|ensure that)\b`)

var fileOrCodeRef = regexp.MustCompile("(?i)([\\w./-]+\\.[a-zA-Z0-9]{1,5}|`[^`]+`)")

var verbosePhrases = []string{
	"please note that",
	"it is important to",
	"it's important to",
	"make sure to",
	"as mentioned earlier",
	"as previously stated",
	"as discussed above",
	"keep in mind that",
	"for your information",
	"in order to",
	"it should be noted that",
	"needless to say",
}

// Compact reduces text toward targetFraction of its original length (a
// value of 0.5 asks for roughly half). It never errors; a pathological
// input simply returns with whatever reduction the pipeline achieved.
// Idempotent: running Compact again on an already-compacted string is a
// near no-op, since stages 1-4 find nothing further to remove and stage 5
// only fires when the realized reduction still falls short of the target.
func Compact(text string, targetFraction float64) Result {
	originalLen := len(text)
	if originalLen == 0 {
		return Result{}
	}
	if targetFraction <= 0 {
		targetFraction = 0.5
	}

	out := collapseWhitespace(text)
	out = dedupeSentences(out)
	out = summarizeCodeBlocks(out)
	out = stripVerbosePhrases(out)

	realized := 1 - float64(len(out))/float64(originalLen)
	if realized < targetFraction {
		out = aggressiveSummarize(out, targetFraction)
	}

	compactedLen := len(out)
	reduction := 0.0
	if originalLen > 0 {
		reduction = (1 - float64(compactedLen)/float64(originalLen)) * 100
	}
	return Result{
		Compacted:        out,
		OriginalLen:      originalLen,
		CompactedLen:     compactedLen,
		ReductionPercent: reduction,
	}
}

// collapseWhitespace collapses runs of whitespace to a single space and
// trims the ends.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// dedupeSentences splits on sentence terminators, dropping sentences whose
// normalized (lowercased, trimmed) form repeats, and dropping sentences
// below minSentenceLen.
func dedupeSentences(s string) string {
	sentences := splitSentences(s)
	seen := make(map[string]bool, len(sentences))
	var kept []string
	for _, sent := range sentences {
		trimmed := strings.TrimSpace(sent)
		if len(trimmed) < minSentenceLen {
			continue
		}
		norm := strings.ToLower(trimmed)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

func splitSentences(s string) []string {
	matches := sentenceSplit.FindAllString(s, -1)
	if matches == nil {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

// summarizeCodeBlocks shortens any fenced code block whose body exceeds
// codeBlockThreshold characters to its first five and last three lines
// with an elision marker between them.
func summarizeCodeBlocks(s string) string {
	return codeFence.ReplaceAllStringFunc(s, func(block string) string {
		m := codeFence.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		lang, body := m[1], m[2]
		if len(body) <= codeBlockThreshold {
			return block
		}
		lines := strings.Split(body, "\n")
		if len(lines) <= 9 {
			return block
		}
		head := lines[:5]
		tail := lines[len(lines)-3:]
		var b strings.Builder
		fmt.Fprintf(&b, "```%s\n", lang)
		b.WriteString(strings.Join(head, "\n"))
		b.WriteString("\n// ... (code omitted for brevity) ...\n")
		b.WriteString(strings.Join(tail, "\n"))
		b.WriteString("\n```")
		return b.String()
	})
}

// stripVerbosePhrases removes case-insensitive matches of a fixed list of
// filler prefixes.
func stripVerbosePhrases(s string) string {
	out := s
	for _, phrase := range verbosePhrases {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase) + `\s*`)
		out = pattern.ReplaceAllString(out, "")
	}
	return collapseWhitespace(out)
}

// aggressiveSummarize scores surviving sentences and keeps the
// highest-scoring ones, preserving their original order, only firing when
// the earlier stages alone did not reach targetFraction.
func aggressiveSummarize(s string, targetFraction float64) string {
	sentences := splitSentences(s)
	n := len(sentences)
	if n == 0 {
		return s
	}

	type scored struct {
		text  string
		index int
		score int
	}
	items := make([]scored, n)
	for i, sent := range sentences {
		items[i] = scored{text: sent, index: i, score: scoreSentence(sent)}
	}

	keep := int(ceilFloat(float64(n) * (1 - targetFraction)))
	if keep < sentenceFloor {
		keep = sentenceFloor
	}
	if keep > n {
		keep = n
	}

	ranked := make([]scored, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	ranked = ranked[:keep]

	keepIdx := make(map[int]bool, keep)
	for _, r := range ranked {
		keepIdx[r.index] = true
	}

	var out []string
	for _, it := range items {
		if keepIdx[it.index] {
			out = append(out, strings.TrimSpace(it.text))
		}
	}
	return strings.Join(out, " ")
}

func scoreSentence(sent string) int {
	score := 0
	if actionVerbs.MatchString(sent) {
		score += 3
	}
	if requirementLanguage.MatchString(sent) {
		score += 2
	}
	if fileOrCodeRef.MatchString(sent) {
		score += 2
	}
	if len(sent) > 200 {
		score -= 1
	}
	return score
}

func ceilFloat(f float64) float64 {
	i := int64(f)
	if float64(i) < f {
		i++
	}
	return float64(i)
}
