package codec

import (
	"bytes"
	"io"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mcncl/jsonshape/jsonerr"
	"github.com/mcncl/jsonshape/lexer"
	"github.com/mcncl/jsonshape/shape"
)

// Option configures Deserialize.
type Option func(*options)

type options struct {
	requireAll       bool
	disallowTrailing bool
}

// RequireAllFields makes a missing field a structural error reported at the closing brace
// of its object. By default missing fields keep whatever value the target already held.
func RequireAllFields() Option {
	return func(o *options) {
		o.requireAll = true
	}
}

// DisallowTrailing makes Deserialize read to the end of the source and fail if anything
// other than whitespace follows the document.
func DisallowTrailing() Option {
	return func(o *options) {
		o.disallowTrailing = true
	}
}

// Deserialize reads one JSON object from r into v, which must be a non-nil pointer to the
// struct type described by s.
//
// Keys may appear in any order and unknown keys are skipped. When a key repeats, the last
// occurrence wins. Fields absent from the input are left untouched unless RequireAllFields
// is given. Integer fields accept only numbers that are exactly representable in the
// field's type; fixed arrays must contain exactly their declared number of elements.
//
// When r implements io.ByteScanner nothing after the closing brace is consumed. The target
// may be partially updated when an error is returned.
func Deserialize(r io.Reader, v any, s *shape.Struct, opts ...Option) error {
	rv, err := target(v, s)
	if err != nil {
		return err
	}
	d := &reader{lex: lexer.New(r)}
	for _, opt := range opts {
		opt(&d.opts)
	}

	tok, err := d.lex.Next()
	if err != nil {
		return err
	}
	if err := d.object(s, rv, tok); err != nil {
		return err
	}
	if d.opts.disallowTrailing {
		tok, err := d.lex.Next()
		if err != nil {
			return err
		}
		if tok.Kind != lexer.EOF {
			return jsonerr.Structural(tok.Offset, "unexpected %s after top-level value", tok.Describe())
		}
	}
	return nil
}

// Unmarshal parses data into v. Unlike Deserialize it rejects trailing content.
func Unmarshal(data []byte, v any, s *shape.Struct, opts ...Option) error {
	opts = append([]Option{DisallowTrailing()}, opts...)
	return Deserialize(bytes.NewReader(data), v, s, opts...)
}

// Decode deserializes into v using the cached descriptor of T.
func Decode[T any](r io.Reader, v *T, opts ...Option) error {
	s, err := shape.Of[T]()
	if err != nil {
		return err
	}
	return Deserialize(r, v, s, opts...)
}

type reader struct {
	lex  *lexer.Lexer
	opts options
	path path
}

func (d *reader) next() (lexer.Token, error) {
	tok, err := d.lex.Next()
	if err != nil {
		return tok, d.located(err)
	}
	return tok, nil
}

func (d *reader) located(err error) error {
	var e *jsonerr.Error
	if errors.As(err, &e) {
		return e.WithPath(d.path.String())
	}
	return err
}

func (d *reader) unexpected(tok lexer.Token, want string) error {
	return d.located(jsonerr.Structural(tok.Offset, "unexpected %s, expected %s", tok.Describe(), want))
}

// object reads the members of a JSON object whose opening token is tok.
func (d *reader) object(s *shape.Struct, v reflect.Value, tok lexer.Token) error {
	if tok.Kind != lexer.BeginObject {
		return d.unexpected(tok, "'{'")
	}

	var seen []bool
	if d.opts.requireAll {
		seen = make([]bool, s.NumField())
	}

	tok, err := d.next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.EndObject {
		for {
			if tok.Kind != lexer.String {
				return d.unexpected(tok, "object key")
			}
			key := tok.Text
			if tok, err = d.next(); err != nil {
				return err
			}
			if tok.Kind != lexer.Colon {
				return d.unexpected(tok, "':'")
			}
			if tok, err = d.next(); err != nil {
				return err
			}

			if i, ok := s.Lookup(key); ok {
				f := s.Field(i)
				d.path.pushField(f.Name)
				if err := d.value(f.Type, v.Field(f.Index), tok); err != nil {
					return err
				}
				d.path.pop()
				if seen != nil {
					seen[i] = true
				}
			} else if err := d.skip(tok, 0); err != nil {
				return err
			}

			if tok, err = d.next(); err != nil {
				return err
			}
			if tok.Kind == lexer.EndObject {
				break
			}
			if tok.Kind != lexer.Comma {
				return d.unexpected(tok, "',' or '}'")
			}
			if tok, err = d.next(); err != nil {
				return err
			}
		}
	}

	for i, ok := range seen {
		if !ok {
			return d.located(jsonerr.Structural(tok.Offset, "missing field %q", s.Field(i).Name))
		}
	}
	return nil
}

// array reads exactly t.Len elements of a JSON array whose opening token is tok.
func (d *reader) array(t *shape.Type, v reflect.Value, tok lexer.Token) error {
	if tok.Kind != lexer.BeginArray {
		return d.unexpected(tok, "'['")
	}
	tok, err := d.next()
	if err != nil {
		return err
	}
	for i := 0; i < t.Len; i++ {
		if tok.Kind == lexer.EndArray {
			return d.located(jsonerr.Structural(tok.Offset, "array has %d elements, expected %d", i, t.Len))
		}
		if i > 0 {
			if tok.Kind != lexer.Comma {
				return d.unexpected(tok, "',' or ']'")
			}
			if tok, err = d.next(); err != nil {
				return err
			}
		}
		d.path.pushIndex(i)
		if err := d.value(t.Elem, v.Index(i), tok); err != nil {
			return err
		}
		d.path.pop()
		if tok, err = d.next(); err != nil {
			return err
		}
	}

	switch {
	case tok.Kind == lexer.EndArray:
		return nil
	case tok.Kind == lexer.Comma:
		if tok, err = d.next(); err != nil {
			return err
		}
	case t.Len > 0:
		return d.unexpected(tok, "',' or ']'")
	}
	return d.located(jsonerr.Structural(tok.Offset, "array has more than %d elements", t.Len))
}

// value decodes the JSON value starting at tok into v.
func (d *reader) value(t *shape.Type, v reflect.Value, tok lexer.Token) error {
	switch t.Kind {
	case shape.KindInteger:
		if tok.Kind != lexer.Number {
			return d.unexpected(tok, "number")
		}
		return d.integer(t, v, tok)
	case shape.KindFloat:
		if tok.Kind != lexer.Number {
			return d.unexpected(tok, "number")
		}
		f, err := strconv.ParseFloat(tok.Text, t.Bits)
		if err != nil {
			return d.located(jsonerr.Range(tok.Offset, "%s overflows %s", tok.Text, t))
		}
		v.SetFloat(f)
	case shape.KindBoolean:
		if !tok.IsLiteral("true") && !tok.IsLiteral("false") {
			return d.unexpected(tok, "true or false")
		}
		v.SetBool(tok.Text == "true")
	case shape.KindString:
		if tok.Kind != lexer.String {
			return d.unexpected(tok, "string")
		}
		v.SetString(tok.Text)
	case shape.KindStruct:
		return d.object(t.Struct, v, tok)
	case shape.KindArray:
		return d.array(t, v, tok)
	default:
		return errors.AssertionFailedf("codec: unexpected kind %s", t.Kind)
	}
	return nil
}

func (d *reader) integer(t *shape.Type, v reflect.Value, tok lexer.Token) error {
	outOfRange := func() error {
		return d.located(jsonerr.Range(tok.Offset, "%s does not fit in %s", tok.Text, t))
	}

	n, ok := exactInteger(tok.Number())
	if !ok {
		return outOfRange()
	}
	if t.Signed {
		if !n.IsInt64() {
			return outOfRange()
		}
		i := n.Int64()
		if v.OverflowInt(i) {
			return outOfRange()
		}
		v.SetInt(i)
		return nil
	}
	if !n.IsUint64() {
		return outOfRange()
	}
	u := n.Uint64()
	if v.OverflowUint(u) {
		return outOfRange()
	}
	v.SetUint(u)
	return nil
}

// maxExponent bounds the exponent of integer literals written in scientific notation.
// Larger exponents are reported as out of range, even for a zero mantissa.
const maxExponent = 400

// exactInteger returns the integer denoted by n, or false when n has a fractional part.
func exactInteger(n lexer.NumberText) (*big.Int, bool) {
	if n.IsInteger() {
		i, ok := new(big.Int).SetString(string(n), 10)
		return i, ok
	}
	if _, exp, found := strings.Cut(strings.ToLower(string(n)), "e"); found {
		e, err := strconv.Atoi(exp)
		if err != nil || e > maxExponent || e < -maxExponent {
			return nil, false
		}
	}
	r, ok := new(big.Rat).SetString(string(n))
	if !ok || !r.IsInt() {
		return nil, false
	}
	return r.Num(), true
}

// skip consumes the value starting at tok without storing it.
func (d *reader) skip(tok lexer.Token, depth int) error {
	switch tok.Kind {
	case lexer.String, lexer.Number, lexer.Literal:
		return nil
	case lexer.BeginObject, lexer.BeginArray:
	default:
		return d.unexpected(tok, "value")
	}
	if depth >= MaxDepth {
		return d.located(jsonerr.Structural(tok.Offset, "exceeded max depth of %d", MaxDepth))
	}

	end := lexer.EndArray
	if tok.Kind == lexer.BeginObject {
		end = lexer.EndObject
	}
	open := tok

	tok, err := d.next()
	if err != nil {
		return err
	}
	if tok.Kind == end {
		return nil
	}
	for {
		if open.Kind == lexer.BeginObject {
			if tok.Kind != lexer.String {
				return d.unexpected(tok, "object key")
			}
			if tok, err = d.next(); err != nil {
				return err
			}
			if tok.Kind != lexer.Colon {
				return d.unexpected(tok, "':'")
			}
			if tok, err = d.next(); err != nil {
				return err
			}
		}
		if err := d.skip(tok, depth+1); err != nil {
			return err
		}
		if tok, err = d.next(); err != nil {
			return err
		}
		if tok.Kind == end {
			return nil
		}
		if tok.Kind != lexer.Comma {
			return d.unexpected(tok, "',' or "+lexer.Token{Kind: end}.Describe())
		}
		if tok, err = d.next(); err != nil {
			return err
		}
	}
}
