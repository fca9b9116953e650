package logpipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// specifierRe matches the pattern grammar:
// %([a-zA-Z%])(?:\{([^}]*)\})?
var specifierRe = regexp.MustCompile(`%([a-zA-Z%])(?:\{([^}]*)\})?`)

// segment is one literal run or one compiled specifier.
type segment struct {
	literal string
	verb    byte
	arg     string
	isVerb  bool
}

// Pattern is a compiled log format string.
//
// Recognized specifiers: %d{fmt} (time), %T (tab), %t (thread id),
// %F (fiber id), %p (level), %c (logger name), %f:%l (file:line),
// %m (message), %n (newline), %% (literal percent). Anything else
// is emitted as the literal placeholder "<<error_format %X>>" at
// format time, so the pattern itself stays usable.
type Pattern struct {
	segments []segment
}

// DefaultPatternText is the default pattern used by new Loggers.
const DefaultPatternText = "%d{2006-01-02 15:04:05.000}%T%p%T[%c]%T%t:%F%T%f:%l%T%m%n"

// NewPattern compiles text into a Pattern. It never fails: unrecognized
// specifiers are preserved as literal placeholders at format time.
func NewPattern(text string) *Pattern {
	var segs []segment
	last := 0
	for _, loc := range specifierRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			segs = append(segs, segment{literal: text[last:loc[0]]})
		}
		verb := text[loc[2]:loc[3]][0]
		arg := ""
		if loc[4] >= 0 {
			arg = text[loc[4]:loc[5]]
		}
		segs = append(segs, segment{verb: verb, arg: arg, isVerb: true})
		last = loc[1]
	}
	if last < len(text) {
		segs = append(segs, segment{literal: text[last:]})
	}
	return &Pattern{segments: segs}
}

// Format renders e according to the compiled pattern.
func (p *Pattern) Format(e Entry) string {
	var b strings.Builder
	for _, s := range p.segments {
		if !s.isVerb {
			b.WriteString(s.literal)
			continue
		}
		switch s.verb {
		case '%':
			b.WriteByte('%')
		case 'd':
			layout := s.arg
			if layout == "" {
				layout = "2006-01-02 15:04:05"
			}
			b.WriteString(e.Time.Format(layout))
		case 'T':
			b.WriteByte('\t')
		case 't':
			b.WriteString(strconv.FormatUint(e.ThreadID, 10))
		case 'F':
			b.WriteString(strconv.FormatUint(e.FiberID, 10))
		case 'p':
			b.WriteString(e.Level.String())
		case 'c':
			b.WriteString(e.Logger)
		case 'f':
			b.WriteString(e.File)
		case 'l':
			b.WriteString(strconv.Itoa(e.Line))
		case 'm':
			b.WriteString(e.Message)
		case 'n':
			b.WriteByte('\n')
		default:
			fmt.Fprintf(&b, "<<error_format %%%c>>", s.verb)
		}
	}
	return b.String()
}
