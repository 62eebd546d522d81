package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// snippetContext is the number of characters of surrounding text kept on
// each side of a match when extracting evidence.
const snippetContext = 50

// textMatch is one regular-expression match over the document text: the
// matched span plus the captured groups in order.
type textMatch struct {
	start  int
	end    int
	groups []string
}

// search runs a compiled pattern against the document text and returns
// the first match, if any.
func search(re *regexp.Regexp, text string) (textMatch, bool) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return textMatch{}, false
	}

	m := textMatch{start: loc[0], end: loc[1]}
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			m.groups = append(m.groups, "")
			continue
		}
		m.groups = append(m.groups, text[loc[i]:loc[i+1]])
	}
	return m, true
}

// firstCapture returns the first captured group of a match.
func (m textMatch) firstCapture() (string, bool) {
	if len(m.groups) == 0 {
		return "", false
	}
	return m.groups[0], true
}

// numericCapture coerces a captured string to a float, stripping
// thousands separators first. The cleaned string is returned alongside
// for message formatting. Failure means the rule simply does not fire.
func numericCapture(raw string) (float64, string, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, "", false
	}
	return value, cleaned, true
}

// snippet extracts a trimmed window of text centered on a match span.
func snippet(text string, start, end int) string {
	from := start - snippetContext
	if from < 0 {
		from = 0
	}
	to := end + snippetContext
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}
