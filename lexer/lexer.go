// Package lexer turns a JSON byte stream into a lazy sequence of tokens.
//
// The lexer only tokenizes: it rejects malformed strings, numbers and unknown characters
// but does not check that tokens form a valid document. Each token records the byte
// offset at which it starts.
package lexer

import (
	"bufio"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mcncl/jsonshape/jsonerr"
)

// Lexer reads tokens from a source. It is not restartable and not safe for concurrent use.
type Lexer struct {
	r   io.ByteScanner
	off int64
	buf []byte
}

// New creates a Lexer reading from r. When r implements io.ByteScanner (bufio.Reader,
// bytes.Reader, strings.Reader) the lexer never reads past the end of the current token,
// so content following a document stays in r. Other readers are wrapped in a bufio.Reader.
func New(r io.Reader) *Lexer {
	bs, ok := r.(io.ByteScanner)
	if !ok {
		bs = bufio.NewReader(r)
	}
	return &Lexer{r: bs, buf: make([]byte, 0, 64)}
}

// Offset returns the number of bytes consumed so far.
func (l *Lexer) Offset() int64 {
	return l.off
}

// next reads one byte. ok is false at end of input.
func (l *Lexer) next() (c byte, ok bool, err error) {
	c, err = l.r.ReadByte()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, jsonerr.IO(l.off, err)
	}
	l.off++
	return c, true, nil
}

func (l *Lexer) unread() {
	if l.r.UnreadByte() == nil {
		l.off--
	}
}

// Next returns the next token. At end of input it returns an EOF token and a nil error.
func (l *Lexer) Next() (Token, error) {
	var c byte
	for {
		var ok bool
		var err error
		c, ok, err = l.next()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			return Token{Kind: EOF, Offset: l.off}, nil
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
	}

	start := l.off - 1
	switch c {
	case '{':
		return Token{Kind: BeginObject, Offset: start}, nil
	case '}':
		return Token{Kind: EndObject, Offset: start}, nil
	case '[':
		return Token{Kind: BeginArray, Offset: start}, nil
	case ']':
		return Token{Kind: EndArray, Offset: start}, nil
	case ':':
		return Token{Kind: Colon, Offset: start}, nil
	case ',':
		return Token{Kind: Comma, Offset: start}, nil
	case '"':
		return l.lexString(start)
	case 't', 'f', 'n':
		return l.lexLiteral(c, start)
	}
	if c == '-' || isDigit(c) {
		return l.lexNumber(c, start)
	}
	return Token{}, jsonerr.Lex(start, "unexpected character %q", c)
}

func (l *Lexer) lexLiteral(first byte, start int64) (Token, error) {
	l.buf = append(l.buf[:0], first)
	for {
		c, ok, err := l.next()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			break
		}
		if c < 'a' || c > 'z' {
			l.unread()
			break
		}
		l.buf = append(l.buf, c)
	}
	switch word := string(l.buf); word {
	case "true", "false", "null":
		return Token{Kind: Literal, Offset: start, Text: word}, nil
	default:
		return Token{}, jsonerr.Lex(start, "invalid literal %q", word)
	}
}

func (l *Lexer) lexNumber(first byte, start int64) (Token, error) {
	l.buf = append(l.buf[:0], first)
	c, ok, err := first, true, error(nil)

	if c == '-' {
		if c, ok, err = l.requireDigit("after '-'"); err != nil {
			return Token{}, err
		}
	}

	// c is the first digit of the integer part.
	if c == '0' {
		if c, ok, err = l.next(); err != nil {
			return Token{}, err
		}
		if ok && isDigit(c) {
			return Token{}, jsonerr.Lex(l.off-1, "invalid leading zero in number")
		}
	} else if c, ok, err = l.digits(); err != nil {
		return Token{}, err
	}

	if ok && c == '.' {
		l.buf = append(l.buf, '.')
		if _, _, err = l.requireDigit("after '.'"); err != nil {
			return Token{}, err
		}
		if c, ok, err = l.digits(); err != nil {
			return Token{}, err
		}
	}

	if ok && (c == 'e' || c == 'E') {
		l.buf = append(l.buf, c)
		if c, ok, err = l.next(); err != nil {
			return Token{}, err
		}
		if ok && (c == '+' || c == '-') {
			l.buf = append(l.buf, c)
		} else if ok {
			l.unread()
		}
		if _, _, err = l.requireDigit("in exponent"); err != nil {
			return Token{}, err
		}
		if _, ok, err = l.digits(); err != nil {
			return Token{}, err
		}
	}

	if ok {
		l.unread()
	}
	return Token{Kind: Number, Offset: start, Text: string(l.buf)}, nil
}

// requireDigit reads one byte that must be a digit and appends it.
func (l *Lexer) requireDigit(where string) (byte, bool, error) {
	c, ok, err := l.next()
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, jsonerr.Lex(l.off, "unexpected end of number: missing digit %s", where)
	}
	if !isDigit(c) {
		return 0, false, jsonerr.Lex(l.off-1, "invalid character %q in number: missing digit %s", c, where)
	}
	l.buf = append(l.buf, c)
	return c, true, nil
}

// digits appends consecutive digits and returns the first byte that is not one.
func (l *Lexer) digits() (byte, bool, error) {
	for {
		c, ok, err := l.next()
		if err != nil || !ok {
			return 0, false, err
		}
		if !isDigit(c) {
			return c, true, nil
		}
		l.buf = append(l.buf, c)
	}
}

func (l *Lexer) lexString(start int64) (Token, error) {
	l.buf = l.buf[:0]
	for {
		c, ok, err := l.next()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			return Token{}, jsonerr.Lex(start, "unterminated string")
		}
		switch {
		case c == '"':
			return Token{Kind: String, Offset: start, Text: string(l.buf)}, nil
		case c == '\\':
			if err := l.lexEscape(start); err != nil {
				return Token{}, err
			}
		case c < 0x20:
			return Token{}, jsonerr.Lex(l.off-1, "invalid control character 0x%02x in string", c)
		default:
			l.buf = append(l.buf, c)
		}
	}
}

func (l *Lexer) lexEscape(start int64) error {
	escape := l.off - 1
	c, ok, err := l.next()
	if err != nil {
		return err
	}
	if !ok {
		return jsonerr.Lex(start, "unterminated string")
	}
	switch c {
	case '"', '\\', '/':
		l.buf = append(l.buf, c)
	case 'b':
		l.buf = append(l.buf, '\b')
	case 'f':
		l.buf = append(l.buf, '\f')
	case 'n':
		l.buf = append(l.buf, '\n')
	case 'r':
		l.buf = append(l.buf, '\r')
	case 't':
		l.buf = append(l.buf, '\t')
	case 'u':
		r, err := l.hex4(escape)
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) {
			if r >= 0xDC00 {
				return jsonerr.Lex(escape, "unexpected low surrogate \\u%04x", r)
			}
			if r, err = l.lowSurrogate(escape, r); err != nil {
				return err
			}
		}
		l.buf = utf8.AppendRune(l.buf, r)
	default:
		return jsonerr.Lex(escape, "invalid escape character %q", c)
	}
	return nil
}

// lowSurrogate reads the \uXXXX that must follow high and combines the pair.
func (l *Lexer) lowSurrogate(escape int64, high rune) (rune, error) {
	for _, want := range []byte{'\\', 'u'} {
		c, ok, err := l.next()
		if err != nil {
			return 0, err
		}
		if !ok || c != want {
			return 0, jsonerr.Lex(escape, "missing low surrogate after \\u%04x", high)
		}
	}
	low, err := l.hex4(l.off - 2)
	if err != nil {
		return 0, err
	}
	if low < 0xDC00 || low > 0xDFFF {
		return 0, jsonerr.Lex(escape, "invalid surrogate pair \\u%04x\\u%04x", high, low)
	}
	return utf16.DecodeRune(high, low), nil
}

func (l *Lexer) hex4(escape int64) (rune, error) {
	var r rune
	for i := 0; i < 4; i++ {
		c, ok, err := l.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, jsonerr.Lex(escape, "truncated unicode escape")
		}
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			r |= rune(c - 'A' + 10)
		default:
			return 0, jsonerr.Lex(escape, "invalid hex digit %q in unicode escape", c)
		}
	}
	return r, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
