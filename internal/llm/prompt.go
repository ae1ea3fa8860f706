package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrTemplate = errors.New("prompt template error")

// Prompt is a named template. {{name}} interpolates a text variable and
// {{media name}} places a document part at that position.
type Prompt struct {
	Name     string
	segments []segment
}

type segment struct {
	literal string
	name    string
	media   bool
}

// Vars are the values a Prompt is rendered with.
type Vars struct {
	Text  map[string]string
	Media map[string]Media
}

// ParsePrompt parses tmpl once so rendering cannot fail on syntax.
func ParsePrompt(name, tmpl string) (Prompt, error) {
	p := Prompt{Name: name}
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			if rest != "" {
				p.segments = append(p.segments, segment{literal: rest})
			}
			return p, nil
		}
		if start > 0 {
			p.segments = append(p.segments, segment{literal: rest[:start]})
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return Prompt{}, fmt.Errorf("%w: %s: unterminated placeholder", ErrTemplate, name)
		}
		token := strings.Fields(rest[start+2 : start+end])
		switch {
		case len(token) == 1 && token[0] != "media":
			p.segments = append(p.segments, segment{name: token[0]})
		case len(token) == 2 && token[0] == "media":
			p.segments = append(p.segments, segment{name: token[1], media: true})
		default:
			return Prompt{}, fmt.Errorf("%w: %s: bad placeholder %q", ErrTemplate, name, rest[start:start+end+2])
		}
		rest = rest[start+end+2:]
	}
}

// MustPrompt is ParsePrompt for templates compiled into the binary.
func MustPrompt(name, tmpl string) Prompt {
	p, err := ParsePrompt(name, tmpl)
	if err != nil {
		panic(err)
	}
	return p
}

// Variables lists the placeholders the prompt expects, sorted.
func (p Prompt) Variables() (text []string, media []string) {
	seenText := map[string]bool{}
	seenMedia := map[string]bool{}
	for _, s := range p.segments {
		switch {
		case s.name == "":
		case s.media && !seenMedia[s.name]:
			seenMedia[s.name] = true
			media = append(media, s.name)
		case !s.media && !seenText[s.name]:
			seenText[s.name] = true
			text = append(text, s.name)
		}
	}
	sort.Strings(text)
	sort.Strings(media)
	return text, media
}

// Render produces the message parts. Adjacent text is merged; a missing
// variable is an error.
func (p Prompt) Render(vars Vars) ([]Part, error) {
	var (
		parts []Part
		buf   strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, TextPart(buf.String()))
			buf.Reset()
		}
	}
	for _, s := range p.segments {
		switch {
		case s.name == "":
			buf.WriteString(s.literal)
		case s.media:
			m, ok := vars.Media[s.name]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown media variable %q", ErrTemplate, p.Name, s.name)
			}
			flush()
			parts = append(parts, MediaPart(m))
		default:
			v, ok := vars.Text[s.name]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown variable %q", ErrTemplate, p.Name, s.name)
			}
			buf.WriteString(v)
		}
	}
	flush()
	return parts, nil
}

// JoinText concatenates text parts. Media parts must have been converted first.
func JoinText(parts []Part) (string, error) {
	var b strings.Builder
	for _, part := range parts {
		if part.IsMedia() {
			return "", fmt.Errorf("%w: unexpected media part", ErrTemplate)
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
