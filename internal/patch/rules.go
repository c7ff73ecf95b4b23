package patch

import (
	"regexp"
	"strings"
)

// Rule is one text transformation. Apply reports how many places it changed;
// zero is not an error.
type Rule interface {
	apply(text string) (string, int)
	String() string
}

type replaceRule struct {
	re   *regexp.Regexp
	repl string
}

// Replace substitutes every match of pattern with repl. The pattern is
// compiled in multi-line, dot-matches-newline mode; repl may reference
// groups as ${1}. Replace panics if pattern does not compile, rule tables
// being static.
func Replace(pattern, repl string) Rule {
	return &replaceRule{re: regexp.MustCompile("(?ms)" + pattern), repl: repl}
}

func (r *replaceRule) apply(text string) (string, int) {
	n := len(r.re.FindAllStringIndex(text, -1))
	if n == 0 {
		return text, 0
	}
	return r.re.ReplaceAllString(text, r.repl), n
}

func (r *replaceRule) String() string { return "replace " + r.re.String() }

type literalRule struct {
	from, to string
}

// Literal replaces every occurrence of from with to.
func Literal(from, to string) Rule {
	return &literalRule{from: from, to: to}
}

func (r *literalRule) apply(text string) (string, int) {
	if r.from == "" {
		return text, 0
	}
	n := strings.Count(text, r.from)
	if n == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, r.from, r.to), n
}

func (r *literalRule) String() string { return "literal " + r.from }

type insertRule struct {
	anchor string
	text   string
}

// InsertAfter inserts lines after every line equal to anchor. A line ending
// in "\r" still matches, and the inserted lines then use CRLF as well.
func InsertAfter(anchor string, lines ...string) Rule {
	return &insertRule{anchor: anchor, text: strings.Join(lines, "\n")}
}

func (r *insertRule) apply(text string) (string, int) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+1)
	n := 0
	for _, line := range lines {
		out = append(out, line)
		trimmed, crlf := strings.CutSuffix(line, "\r")
		if trimmed != r.anchor {
			continue
		}
		ins := r.text
		if crlf {
			ins = strings.ReplaceAll(ins, "\n", "\r\n") + "\r"
		}
		out = append(out, ins)
		n++
	}
	if n == 0 {
		return text, 0
	}
	return strings.Join(out, "\n"), n
}

func (r *insertRule) String() string { return "insert after " + r.anchor }
