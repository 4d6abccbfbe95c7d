package phrase

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads compact phrase notation: whitespace-separated notes written as
// step[:duration][~ornament], e.g. "0:.75~updown +1:.75 +1:1.5~up".
// A missing duration means 1.
func Parse(input string) (Phrase, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Phrase{}, ErrEmptyPhrase
	}
	notes := make([]Note, 0, len(fields))
	for i, field := range fields {
		n, err := parseNote(field)
		if err != nil {
			return Phrase{}, fmt.Errorf("note %d %q: %w", i, field, err)
		}
		notes = append(notes, n)
	}
	p := Phrase{notes: notes}
	if err := p.Validate(); err != nil {
		return Phrase{}, err
	}
	return p, nil
}

func parseNote(token string) (Note, error) {
	n := Note{Duration: 1}
	if i := strings.IndexByte(token, '~'); i >= 0 {
		n.Ornament = token[i+1:]
		token = token[:i]
		if n.Ornament == "" {
			return Note{}, fmt.Errorf("empty ornament")
		}
	}
	stepText := token
	if i := strings.IndexByte(token, ':'); i >= 0 {
		stepText = token[:i]
		d, err := strconv.ParseFloat(token[i+1:], 64)
		if err != nil {
			return Note{}, fmt.Errorf("invalid duration: %w", err)
		}
		n.Duration = d
	}
	step, err := strconv.Atoi(stepText)
	if err != nil {
		return Note{}, fmt.Errorf("invalid step: %w", err)
	}
	n.Step = step
	return n, nil
}

// Format writes p in the notation Parse reads.
func Format(p Phrase) string {
	var b strings.Builder
	for i, n := range p.notes {
		if i > 0 {
			b.WriteByte(' ')
		}
		if n.Step > 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(n.Step))
		if n.Duration != 1 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatFloat(n.Duration, 'g', -1, 64))
		}
		if n.Ornament != "" {
			b.WriteByte('~')
			b.WriteString(n.Ornament)
		}
	}
	return b.String()
}
