package template

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	leftDelim  = "{{"
	rightDelim = "}}"
)

type tokenKind int

const (
	tokenError tokenKind = iota
	tokenEOF
	tokenText    // literal text outside actions
	tokenLeft    // {{, trim flag set for {{-
	tokenRight   // }}, trim flag set for -}}
	tokenIdent   // function or keyword name
	tokenPath    // .foo.bar or bare .
	tokenString  // quoted string, value holds the unquoted text
	tokenNumber  // integer or float literal
	tokenPipe    // |
	tokenLParen  // (
	tokenRParen  // )
)

type token struct {
	kind tokenKind
	val  string
	pos  int // byte offset in the source
}

// lexer splits template source into text and action tokens.
// It alternates between scanning literal text and scanning the inside
// of a {{ ... }} action.
type lexer struct {
	name     string
	input    string
	pos      int
	tokens   []token
	inAction bool
}

// lex tokenizes the whole source up front. Errors surface as a
// tokenError token so the parser can report them with position info.
func lex(name, input string) []token {
	l := &lexer{name: name, input: input}
	for {
		var more bool
		if l.inAction {
			more = l.scanAction()
		} else {
			more = l.scanText()
		}
		if !more {
			break
		}
	}
	l.tokens = append(l.tokens, token{kind: tokenEOF, pos: l.pos})
	return l.tokens
}

// scanText consumes literal text up to the next left delimiter.
// A {{- marker trims the trailing whitespace of the text before it.
// Returns false when the input is exhausted.
func (l *lexer) scanText() bool {
	start := l.pos
	idx := strings.Index(l.input[l.pos:], leftDelim)
	if idx < 0 {
		if l.pos < len(l.input) {
			l.tokens = append(l.tokens, token{kind: tokenText, val: l.input[l.pos:], pos: start})
		}
		l.pos = len(l.input)
		return false
	}

	text := l.input[l.pos : l.pos+idx]
	l.pos += idx + len(leftDelim)

	if strings.HasPrefix(l.input[l.pos:], "-") && hasSpaceAfter(l.input, l.pos+1) {
		l.pos++
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text != "" {
		l.tokens = append(l.tokens, token{kind: tokenText, val: text, pos: start})
	}
	l.tokens = append(l.tokens, token{kind: tokenLeft, pos: start + idx})
	l.inAction = true
	return true
}

// hasSpaceAfter reports whether the byte at pos is whitespace, so that
// "{{-3}}" lexes as the number -3 rather than a trim marker.
func hasSpaceAfter(input string, pos int) bool {
	if pos >= len(input) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(input[pos:])
	return unicode.IsSpace(r)
}

// scanAction consumes one token inside an action. Returns false when
// the action (or the input) ends.
func (l *lexer) scanAction() bool {
	// Skip whitespace inside the action.
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}

	if l.pos >= len(l.input) {
		l.errorf(l.pos, "unclosed action")
		return false
	}

	// Closing delimiter; a -}} marker also swallows the whitespace
	// that follows, newline included.
	if strings.HasPrefix(l.input[l.pos:], "-"+rightDelim) {
		l.tokens = append(l.tokens, token{kind: tokenRight, pos: l.pos})
		l.pos += 1 + len(rightDelim)
		l.pos += len(l.input[l.pos:]) - len(strings.TrimLeft(l.input[l.pos:], " \t\r\n"))
		l.inAction = false
		return true
	}
	if strings.HasPrefix(l.input[l.pos:], rightDelim) {
		l.tokens = append(l.tokens, token{kind: tokenRight, pos: l.pos})
		l.pos += len(rightDelim)
		l.inAction = false
		return true
	}

	start := l.pos
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])

	switch {
	case r == '|':
		l.pos += size
		l.tokens = append(l.tokens, token{kind: tokenPipe, pos: start})
	case r == '(':
		l.pos += size
		l.tokens = append(l.tokens, token{kind: tokenLParen, pos: start})
	case r == ')':
		l.pos += size
		l.tokens = append(l.tokens, token{kind: tokenRParen, pos: start})
	case r == '"':
		return l.scanString(start)
	case r == '`':
		return l.scanRawString(start)
	case r == '.':
		l.scanPath(start)
	case r == '-' || r == '+' || unicode.IsDigit(r):
		return l.scanNumber(start)
	case isIdentRune(r):
		l.scanIdent(start)
	default:
		l.errorf(start, "unexpected character %q in action", r)
		return false
	}
	return true
}

func (l *lexer) scanPath(start int) {
	l.pos++ // consume the leading dot
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r != '.' && !isIdentRune(r) {
			break
		}
		l.pos += size
	}
	l.tokens = append(l.tokens, token{kind: tokenPath, val: l.input[start:l.pos], pos: start})
}

func (l *lexer) scanIdent(start int) {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentRune(r) {
			break
		}
		l.pos += size
	}
	l.tokens = append(l.tokens, token{kind: tokenIdent, val: l.input[start:l.pos], pos: start})
}

func (l *lexer) scanNumber(start int) bool {
	l.pos++ // sign or first digit
	seenDot := false
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '.' && !seenDot {
			seenDot = true
			l.pos += size
			continue
		}
		if !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	val := l.input[start:l.pos]
	if val == "-" || val == "+" {
		l.errorf(start, "malformed number %q", val)
		return false
	}
	l.tokens = append(l.tokens, token{kind: tokenNumber, val: val, pos: start})
	return true
}

func (l *lexer) scanString(start int) bool {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
		switch r {
		case '"':
			l.tokens = append(l.tokens, token{kind: tokenString, val: sb.String(), pos: start})
			return true
		case '\\':
			if l.pos >= len(l.input) {
				l.errorf(start, "unterminated string")
				return false
			}
			esc, escSize := utf8.DecodeRuneInString(l.input[l.pos:])
			l.pos += escSize
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteRune(esc)
			default:
				l.errorf(start, "unknown escape \\%c in string", esc)
				return false
			}
		case '\n':
			l.errorf(start, "unterminated string")
			return false
		default:
			sb.WriteRune(r)
		}
	}
	l.errorf(start, "unterminated string")
	return false
}

func (l *lexer) scanRawString(start int) bool {
	l.pos++ // opening backquote
	idx := strings.IndexByte(l.input[l.pos:], '`')
	if idx < 0 {
		l.errorf(start, "unterminated raw string")
		return false
	}
	l.tokens = append(l.tokens, token{kind: tokenString, val: l.input[l.pos : l.pos+idx], pos: start})
	l.pos += idx + 1
	return true
}

func (l *lexer) errorf(pos int, format string, args ...any) {
	l.tokens = append(l.tokens, token{kind: tokenError, val: fmt.Sprintf(format, args...), pos: pos})
	l.pos = len(l.input)
	l.inAction = true // stop the lex loop
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
