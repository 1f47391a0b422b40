// Package emitter appends syntactically valid JSON fragments to a byte sink.
//
// The emitter knows nothing about objects or arrays beyond their punctuation; it is the
// codec's job to call it in a valid order. Output is buffered, so callers must Flush once
// the document is complete.
package emitter

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/mcncl/jsonshape/jsonerr"
)

// Punct is a structural JSON character.
type Punct byte

const (
	BeginObject Punct = '{'
	EndObject   Punct = '}'
	BeginArray  Punct = '['
	EndArray    Punct = ']'
	Colon       Punct = ':'
	Comma       Punct = ','
)

const bufferSize = 4096

var hexDigit = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// Emitter writes JSON tokens to an io.Writer.
//
// The first failed write is remembered and returned from every later call, so a caller may
// check errors only where it is convenient. Emitter is not safe for concurrent use.
type Emitter struct {
	w       *bufio.Writer
	scratch []byte
	written int64
	err     error
}

// New creates an Emitter appending to w.
func New(w io.Writer) *Emitter {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriterSize(w, bufferSize)
	}
	return &Emitter{w: bw, scratch: make([]byte, 0, 64)}
}

// Written returns the number of bytes emitted so far, including buffered ones.
func (e *Emitter) Written() int64 {
	return e.written
}

// Err returns the first sink error, if any.
func (e *Emitter) Err() error {
	return e.err
}

func (e *Emitter) write(p []byte) error {
	if e.err != nil {
		return e.err
	}
	n, err := e.w.Write(p)
	e.written += int64(n)
	if err != nil {
		e.err = jsonerr.IO(e.written, err)
	}
	return e.err
}

// Raw writes a single punctuation character.
func (e *Emitter) Raw(p Punct) error {
	if e.err != nil {
		return e.err
	}
	if err := e.w.WriteByte(byte(p)); err != nil {
		e.err = jsonerr.IO(e.written, err)
		return e.err
	}
	e.written++
	return nil
}

// String writes s as a quoted JSON string.
func (e *Emitter) String(s string) error {
	e.scratch = AppendString(e.scratch[:0], s)
	return e.write(e.scratch)
}

// Int writes a signed integer in decimal.
func (e *Emitter) Int(v int64) error {
	e.scratch = strconv.AppendInt(e.scratch[:0], v, 10)
	return e.write(e.scratch)
}

// Uint writes an unsigned integer in decimal.
func (e *Emitter) Uint(v uint64) error {
	e.scratch = strconv.AppendUint(e.scratch[:0], v, 10)
	return e.write(e.scratch)
}

// Float writes f using the shortest representation that parses back to the same value at
// the given bit size (32 or 64). NaN and infinities are rejected with a numeric domain
// error and nothing is written.
func (e *Emitter) Float(f float64, bits int) error {
	if e.err != nil {
		return e.err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return jsonerr.NumericDomain(e.written, f)
	}
	e.scratch = AppendFloat(e.scratch[:0], f, bits)
	return e.write(e.scratch)
}

// Bool writes true or false.
func (e *Emitter) Bool(b bool) error {
	if b {
		return e.write([]byte("true"))
	}
	return e.write([]byte("false"))
}

// Flush pushes buffered bytes to the sink.
func (e *Emitter) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.w.Flush(); err != nil {
		e.err = jsonerr.IO(e.written, err)
	}
	return e.err
}

// AppendString appends the quoted, escaped form of s to dst. Only '"', '\\' and bytes
// below 0x20 are escaped; control bytes always use the \u00XX form.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')

	needsEscape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == '"' || c == '\\' {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		dst = append(dst, s...)
		return append(dst, '"')
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigit[c>>4], hexDigit[c&0xF])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// AppendFloat appends the JSON form of a finite float. Values with a magnitude in
// [1e-6, 1e21) use plain decimal notation, others use an exponent.
func AppendFloat(dst []byte, f float64, bits int) []byte {
	if bits != 32 {
		bits = 64
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	dst = strconv.AppendFloat(dst, f, format, -1, bits)
	if format == 'e' {
		// e-07 -> e-7
		n := len(dst)
		if n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst
}
