package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimePattern is a parsed java.text.SimpleDateFormat pattern, the format used
// by format_as_time tags. Literal text is kept apart from pattern letters so
// it is never read as a Go layout token.
type TimePattern struct {
	segments []timeSegment
}

type timeSegment struct {
	literal string
	layout  string
	// millis is the zero-padded width of an S run; it has no Go layout.
	millis int
}

func ParseTimePattern(pattern string) TimePattern {
	var (
		segments []timeSegment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, timeSegment{literal: literal.String()})
			literal.Reset()
		}
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				literal.WriteRune('\'')
				i += 2
				continue
			}
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\'' {
					if j+1 < len(runes) && runes[j+1] == '\'' {
						literal.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				literal.WriteRune(runes[j])
				j++
			}
			i = j + 1
			continue
		}

		if !isPatternLetter(r) {
			literal.WriteRune(r)
			i++
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}
		i += n

		segment, ok := letterSegment(r, n)
		if !ok {
			literal.WriteString(strings.Repeat(string(r), n))
			continue
		}
		flush()
		segments = append(segments, segment)
	}
	flush()

	return TimePattern{segments: segments}
}

func (p TimePattern) Format(t time.Time) string {
	var b strings.Builder
	for _, segment := range p.segments {
		switch {
		case segment.layout != "":
			b.WriteString(t.Format(segment.layout))
		case segment.millis > 0:
			fmt.Fprintf(&b, "%0*d", segment.millis, t.Nanosecond()/int(time.Millisecond))
		default:
			b.WriteString(segment.literal)
		}
	}
	return b.String()
}

func isPatternLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// letterSegment maps a run of n identical pattern letters to a Go layout.
// Unsupported letters are reported with ok == false and kept as literal text.
func letterSegment(letter rune, n int) (timeSegment, bool) {
	layout := ""
	switch letter {
	case 'y', 'Y', 'u':
		layout = "2006"
		if n == 2 {
			layout = "06"
		}
	case 'M', 'L':
		switch n {
		case 1:
			layout = "1"
		case 2:
			layout = "01"
		case 3:
			layout = "Jan"
		default:
			layout = "January"
		}
	case 'd':
		layout = "02"
		if n == 1 {
			layout = "2"
		}
	case 'D':
		layout = "002"
	case 'H', 'k':
		layout = "15"
	case 'h', 'K':
		layout = "03"
		if n == 1 {
			layout = "3"
		}
	case 'm':
		layout = "04"
		if n == 1 {
			layout = "4"
		}
	case 's':
		layout = "05"
		if n == 1 {
			layout = "5"
		}
	case 'S':
		return timeSegment{millis: n}, true
	case 'E':
		layout = "Mon"
		if n >= 4 {
			layout = "Monday"
		}
	case 'a':
		layout = "PM"
	case 'Z':
		layout = "-0700"
	case 'X':
		switch n {
		case 1:
			layout = "Z07"
		case 2:
			layout = "Z0700"
		default:
			layout = "Z07:00"
		}
	case 'z':
		layout = "MST"
	default:
		return timeSegment{}, false
	}
	return timeSegment{layout: layout}, true
}
