package generator

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"regexp/syntax"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	patternAttempts = 20
	// repeatCeiling bounds unbounded repetition (*, +, {n,}) on the first
	// attempt; later attempts widen it.
	repeatCeiling = 3
)

var patternCache sync.Map // string -> *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// patternString produces a string matching pattern (unanchored, as in JSON
// Schema) whose rune length lies in [minLen, maxLen]. maxLen < 0 is
// unbounded.
func patternString(r *rand.Rand, pattern string, minLen, maxLen int) (string, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return "", fmt.Errorf("pattern %q: %w", pattern, err)
	}
	prog, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", fmt.Errorf("pattern %q: %w", pattern, err)
	}
	prog = prog.Simplify()

	for attempt := range patternAttempts {
		w := &patternWriter{r: r, ceiling: max(repeatCeiling+2*attempt, minLen)}
		w.walk(prog)
		s := w.sb.String()
		l := utf8.RuneCountInString(s)
		if l >= minLen && (maxLen < 0 || l <= maxLen) && re.MatchString(s) {
			return s, nil
		}
	}
	return "", fmt.Errorf("pattern %q cannot be satisfied within length bounds [%d, %d]", pattern, minLen, maxLen)
}

type patternWriter struct {
	r       *rand.Rand
	ceiling int
	sb      strings.Builder
}

func (w *patternWriter) walk(re *syntax.Regexp) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, c := range re.Rune {
			w.sb.WriteRune(c)
		}
	case syntax.OpCharClass:
		w.sb.WriteRune(w.classRune(re.Rune))
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		w.sb.WriteByte(alphabet[w.r.IntN(len(alphabet))])
	case syntax.OpCapture:
		w.walk(re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			w.walk(sub)
		}
	case syntax.OpAlternate:
		w.walk(re.Sub[w.r.IntN(len(re.Sub))])
	case syntax.OpStar:
		w.repeat(re.Sub[0], 0, -1)
	case syntax.OpPlus:
		w.repeat(re.Sub[0], 1, -1)
	case syntax.OpQuest:
		w.repeat(re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		w.repeat(re.Sub[0], re.Min, re.Max)
	}
	// Empty-width assertions (^, $, \b, \A, \z) and OpEmptyMatch/OpNoMatch
	// write nothing.
}

func (w *patternWriter) repeat(sub *syntax.Regexp, lo, hi int) {
	if hi < 0 {
		hi = lo + w.ceiling
	}
	n := lo
	if hi > lo {
		n += w.r.IntN(hi - lo + 1)
	}
	for range n {
		w.walk(sub)
	}
}

// classRune picks a rune from a character class given as [lo, hi] pairs,
// preferring printable ASCII.
func (w *patternWriter) classRune(ranges []rune) rune {
	var ascii []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		for c := max(ranges[i], 0x21); c <= min(ranges[i+1], 0x7e); c++ {
			ascii = append(ascii, c)
		}
	}
	if len(ascii) > 0 {
		return ascii[w.r.IntN(len(ascii))]
	}
	if len(ranges) < 2 {
		return 'x'
	}
	i := w.r.IntN(len(ranges)/2) * 2
	lo, hi := ranges[i], ranges[i+1]
	c := lo + rune(w.r.IntN(int(hi-lo)+1))
	if !utf8.ValidRune(c) || !unicode.IsPrint(c) {
		return lo
	}
	return c
}
