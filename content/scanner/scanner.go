// seehuhn.de/go/pdfclean - remove white backgrounds from PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package scanner splits PDF content streams into operators and operands.
//
// Operands are returned as pdfcpu objects.  Parse errors are ignored as much
// as possible, since many PDF files in the wild contain slightly broken
// content streams.
package scanner

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Operator is a content stream operator together with its operands.
type Operator struct {
	Name string
	Args []types.Object

	// Start is the byte offset of the first operand (or of the operator,
	// if there are no operands).  End is the byte offset just after the
	// operator.
	Start, End int64
}

// A Scanner breaks a content stream into tokens.
type Scanner struct {
	stack []*scanStackFrame
	args  []types.Object

	// err is the first error returned by src.Read().
	// Once an error has been returned, all subsequent calls to .refill() will
	// return err.
	err error

	src       io.Reader
	buf       []byte
	pos, used int

	offset   int64 // number of bytes consumed so far
	argStart int64 // offset of the first pending operand, or -1
}

type scanStackFrame struct {
	data   []types.Object
	isDict bool
}

// New returns a new scanner.
func New() *Scanner {
	return &Scanner{
		buf: make([]byte, 512),
	}
}

// Scan returns an iterator over all operators in the content stream.
//
// The Args slice of the Operator passed to yield is owned by the scanner
// and is only valid until yield returns.
func (s *Scanner) Scan(r io.Reader) func(yield func(op Operator) error) error {
	return func(yield func(Operator) error) error {
		s.err = nil
		s.src = r
		s.pos = 0
		s.used = 0
		s.offset = 0
		s.argStart = -1
		s.stack = s.stack[:0]
		s.args = s.args[:0]

	tokenLoop:
		for {
			s.skipWhiteSpace()
			tokenStart := s.offset
			obj, err := s.nextToken()
			if err != nil {
				break
			}

			switch obj {
			case operator("<<"):
				s.markArg(tokenStart)
				s.stack = append(s.stack, &scanStackFrame{isDict: true})
				continue tokenLoop
			case operator(">>"):
				if len(s.stack) == 0 || !s.stack[len(s.stack)-1].isDict {
					// unexpected '>>'
					continue tokenLoop
				}
				entry := s.stack[len(s.stack)-1]
				s.stack = s.stack[:len(s.stack)-1]
				if len(entry.data)%2 != 0 {
					continue tokenLoop
				}
				dict := types.NewDict()
				for i := 0; i < len(entry.data); i += 2 {
					key, ok := entry.data[i].(types.Name)
					if !ok {
						continue
					}
					val := entry.data[i+1]
					if val == nil {
						continue
					}
					dict[string(key)] = val
				}
				obj = dict
			case operator("["):
				s.markArg(tokenStart)
				s.stack = append(s.stack, &scanStackFrame{})
				continue tokenLoop
			case operator("]"):
				if len(s.stack) == 0 || s.stack[len(s.stack)-1].isDict {
					// unexpected "]"
					continue tokenLoop
				}
				obj = types.Array(s.stack[len(s.stack)-1].data)
				s.stack = s.stack[:len(s.stack)-1]
			}

			if len(s.stack) > 0 { // we are inside a dict or array
				s.stack[len(s.stack)-1].data = append(s.stack[len(s.stack)-1].data, obj)
				continue
			}

			op, isOp := obj.(operator)
			if !isOp {
				s.markArg(tokenStart)
				s.args = append(s.args, obj)
				continue
			}

			start := s.argStart
			if start < 0 {
				start = tokenStart
			}
			err = yield(Operator{
				Name:  string(op),
				Args:  s.args,
				Start: start,
				End:   s.offset,
			})
			if err != nil {
				return err
			}
			s.args = s.args[:0]
			s.argStart = -1

			if op == "ID" {
				dataStart := s.offset
				err := s.skipInlineImage()
				if err == io.EOF {
					break tokenLoop
				} else if err != nil {
					return err
				}
				err = yield(Operator{Name: "EI", Start: dataStart, End: s.offset})
				if err != nil {
					return err
				}
			}
		}

		if s.err == io.EOF {
			return nil
		}
		return s.err
	}
}

func (s *Scanner) markArg(pos int64) {
	if s.argStart < 0 && len(s.stack) == 0 {
		s.argStart = pos
	}
}

func (s *Scanner) nextToken() (types.Object, error) {
	bb := s.peekN(2)
	if len(bb) == 0 {
		return nil, s.err
	}

	switch {
	case bb[0] == '/':
		s.skipN(1)
		return s.readName(), nil
	case bb[0] == '(':
		s.skipN(1)
		return s.readString()
	case string(bb) == "<<":
		s.skipN(2)
		return operator("<<"), nil
	case bb[0] == '<':
		s.skipN(1)
		return s.readHexString()
	case string(bb) == ">>":
		s.skipN(2)
		return operator(">>"), nil
	default:
		opBytes := []byte{bb[0]}
		s.readByte() // skip bb[0] (invalidates bb)
		if class[opBytes[0]] == regular {
			for {
				b, err := s.peek()
				if err == io.EOF {
					break
				} else if err != nil {
					return nil, err
				}
				if class[b] != regular {
					break
				}
				s.readByte()
				opBytes = append(opBytes, b)
			}
		}

		if x := parseNumber(opBytes); x != nil {
			return x, nil
		}

		switch string(opBytes) {
		case "false":
			return types.Boolean(false), nil
		case "true":
			return types.Boolean(true), nil
		case "null":
			return nil, nil
		}
		return operator(opBytes), nil
	}
}

// readString reads a PDF string (not including the leading parenthesis).
func (s *Scanner) readString() (types.Object, error) {
	var res []byte
	bracketLevel := 1
	ignoreLF := false
	for {
		b, err := s.readByte()
		if err != nil {
			return nil, err
		}
		if ignoreLF && b == 10 {
			continue
		}
		ignoreLF = false
		switch b {
		case '(':
			bracketLevel++
			res = append(res, b)
		case ')':
			bracketLevel--
			if bracketLevel == 0 {
				return types.StringLiteral(res), nil
			}
			res = append(res, b)
		case '\\':
			b, err = s.readByte()
			if err != nil {
				return nil, err
			}
			switch b {
			case 'n':
				res = append(res, '\n')
			case 'r':
				res = append(res, '\r')
			case 't':
				res = append(res, '\t')
			case 'b':
				res = append(res, '\b')
			case 'f':
				res = append(res, '\f')
			case '(', ')', '\\':
				res = append(res, b)
			case 10: // LF
			case 13: // CR or CR+LF
				ignoreLF = true
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := b - '0'
				for i := 0; i < 2; i++ {
					b, err = s.peek()
					if err == io.EOF {
						break
					} else if err != nil {
						return nil, err
					}
					if b < '0' || b > '7' {
						break
					}
					s.readByte()
					oct = oct*8 + (b - '0')
				}
				res = append(res, oct)
			default:
				res = append(res, b)
			}
		default:
			res = append(res, b)
		}
	}
}

// readHexString reads a hex string (not including the leading '<').
// The result holds the normalised hex digits, as pdfcpu expects.
func (s *Scanner) readHexString() (types.Object, error) {
	var res []byte
	for {
		b, err := s.readByte()
		if err != nil {
			return nil, err
		}
		switch {
		case b == '>':
			if len(res)%2 != 0 {
				res = append(res, '0')
			}
			return types.HexLiteral(res), nil
		case b <= 32:
			continue
		case hexDigit(b) != 255:
			res = append(res, "0123456789ABCDEF"[hexDigit(b)])
		default:
			return nil, errParse
		}
	}
}

// readName reads a PDF name object (not including the leading slash).
func (s *Scanner) readName() types.Name {
	var name []byte
	for {
		b, err := s.peek()
		if err != nil {
			break
		}

		if b == '#' {
			if b, ok := s.tryHex(); ok {
				name = append(name, b)
				continue
			}
			name = append(name, '#')
		} else if class[b] != regular {
			break
		} else {
			name = append(name, b)
		}
		s.readByte()
	}
	return types.Name(name)
}

func (s *Scanner) tryHex() (byte, bool) {
	digits := s.peekN(3)
	if len(digits) != 3 {
		return 0, false
	}
	high := hexDigit(digits[1])
	low := hexDigit(digits[2])
	if high == 255 || low == 255 {
		return 0, false
	}
	s.skipN(3)
	return high<<4 | low, true
}

// skipInlineImage skips the binary data of an inline image, up to and
// including the "EI" operator.
func (s *Scanner) skipInlineImage() error {
	// a single white-space character separates "ID" from the data
	if b, err := s.peek(); err != nil {
		return err
	} else if class[b] == space {
		s.readByte()
	}

	var prev byte = ' '
	for {
		b, err := s.readByte()
		if err != nil {
			return err
		}
		if b == 'E' && class[prev] == space {
			next := s.peekN(2)
			if len(next) >= 1 && next[0] == 'I' &&
				(len(next) == 1 || class[next[1]] != regular) {
				s.readByte()
				return nil
			}
		}
		prev = b
	}
}

// skipWhiteSpace skips all input (including comments) until a non-whitespace
// character is found.
func (s *Scanner) skipWhiteSpace() {
	for {
		b, err := s.peek()
		if err != nil {
			break
		}
		if b <= 32 {
			s.readByte()
		} else if b == '%' {
			s.skipToEOL()
		} else {
			break
		}
	}
}

// skipToEOL skips everything up to (but not including) the end of the line.
func (s *Scanner) skipToEOL() {
	for {
		b, err := s.peek()
		if b == 10 || b == 13 || err != nil {
			break
		}
		s.readByte()
	}
}

// readByte consumes and returns the next byte of the input stream.
func (s *Scanner) readByte() (byte, error) {
	b, err := s.peek()
	if err != nil {
		return 0, err
	}
	s.pos++
	s.offset++
	return b, nil
}

// peek returns the next byte from the input stream without consuming it.
func (s *Scanner) peek() (byte, error) {
	for s.pos >= s.used {
		err := s.refill()
		if err != nil {
			return 0, err
		}
	}
	return s.buf[s.pos], nil
}

// peekN returns the next n bytes from the input stream without consuming them.
// In case of EOF or of a read error, less than n bytes may be returned.
//
// The returned slice is owned by the scanner and is only valid until the next
// read.
func (s *Scanner) peekN(n int) []byte {
	for s.pos+n > s.used {
		err := s.refill()
		if err != nil {
			break
		}
	}

	a := s.pos
	b := min(s.pos+n, s.used)
	return s.buf[a:b]
}

// skipN consumes n bytes from the input stream.
func (s *Scanner) skipN(n int) {
	for n > 0 {
		if s.pos >= s.used {
			err := s.refill()
			if err != nil {
				break
			}
		}
		if s.pos+n <= s.used {
			s.pos += n
			s.offset += int64(n)
			break
		}
		k := s.used - s.pos
		n -= k
		s.offset += int64(k)
		s.pos = s.used
	}
}

// refill reads more data from the underlying reader into the buffer.
// This is the only place where the underlying reader is called.
func (s *Scanner) refill() error {
	if s.err != nil {
		return s.err
	}

	s.used = copy(s.buf, s.buf[s.pos:s.used])
	s.pos = 0

	n, err := s.src.Read(s.buf[s.used:])
	s.used += n
	s.err = err

	if n == 0 {
		if err == nil {
			return io.ErrNoProgress
		}
		return err
	}
	return nil
}

// ReadAll scans a complete content stream held in memory and returns a copy
// of all operators.
func ReadAll(data []byte) ([]Operator, error) {
	var res []Operator
	err := New().Scan(bytes.NewReader(data))(func(op Operator) error {
		op.Args = append([]types.Object(nil), op.Args...)
		res = append(res, op)
		return nil
	})
	return res, err
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 255
	}
}

// parseNumber tries to interpret s as a number.
// The function returns [types.Integer] or [types.Float] in case s is a valid
// number, and nil otherwise.
func parseNumber(s []byte) types.Object {
	x, err := strconv.ParseInt(string(s), 10, 64)
	if err == nil {
		return types.Integer(x)
	}

	isSimple := true
	for i, c := range s {
		if i == 0 && (c == '+' || c == '-') {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			isSimple = false
			break
		}
	}

	if isSimple {
		y, err := strconv.ParseFloat(string(s), 64)
		if err == nil && !math.IsInf(y, 0) && !math.IsNaN(y) {
			return types.Float(y)
		}
	}

	return nil
}

var errParse = errors.New("malformed content stream")

// operator is a PDF operator found in a content stream.
type operator string

// String implements the [types.Object] interface.
func (x operator) String() string { return string(x) }

// PDFString implements the [types.Object] interface.
func (x operator) PDFString() string { return string(x) }

// Clone implements the [types.Object] interface.
func (x operator) Clone() types.Object { return x }

type characterClass byte

const (
	regular characterClass = iota
	space
	delimiter
)

var class [256]characterClass

func init() {
	for _, c := range []byte{0, 9, 10, 12, 13, 32} {
		class[c] = space
	}
	for _, c := range []byte("%()/<>[]{}") {
		class[c] = delimiter
	}
}
