package folded

import (
	"strconv"
	"strings"
)

// DefaultSeparator is the frame separator used by most folded-stack
// producers (stackcollapse-*.pl and friends).
const DefaultSeparator = ';'

// ParseLine splits one folded-stack line into its frame names and its
// trailing sample count. ok is false for lines that carry no sample:
// blank lines, comments starting with '#', lines without a space, and
// lines whose last token is not a number. Those lines are meant to be
// skipped silently.
func ParseLine(line string, separator rune) (frames []string, count float64, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, 0, false
	}

	i := strings.LastIndex(line, " ")
	if i < 0 {
		return nil, 0, false
	}
	stack, countToken := line[:i], line[i+1:]

	count, ok = parseCount(countToken)
	if !ok {
		return nil, 0, false
	}

	return SplitStack(stack, separator), count, true
}

// parseCount parses a sample count, trying integer first and falling
// back to floating point.
func parseCount(s string) (float64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return 0, false
}

// SplitStack splits the stack part of a folded line into frame names,
// dropping empty segments produced by leading, trailing or doubled
// separators.
//
// The effective separator is chosen per line: a stack containing '/'
// but no ';' comes from a producer which joins frames with '/'
// (files.pl does this), so '/' takes over for that line only. A stack
// containing both characters is ambiguous and keeps the configured
// separator.
func SplitStack(stack string, separator rune) []string {
	if strings.ContainsRune(stack, '/') && !strings.ContainsRune(stack, ';') {
		separator = '/'
	}

	parts := strings.Split(stack, string(separator))
	frames := parts[:0]
	for _, f := range parts {
		if f != "" {
			frames = append(frames, f)
		}
	}
	return frames
}
