// Package rdump reads the R dump format used for Stan data files.
//
// Supported values are numeric scalars, c(...) vectors, integer ranges a:b,
// integer(n) and double(n) zero vectors, quoted strings, and arrays written
// as structure(c(...), .Dim = c(...)). Arrays are stored column-major in the
// dump and returned as nested row-major sequences.
package rdump

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"text/scanner"

	"github.com/robert-malhotra/go-stanload/param"
)

var ErrSyntax = errors.New("rdump syntax error")

// ParseFile reads the dump file at path.
func ParseFile(path string) (param.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads assignments of the form name <- value (or name = value) until
// EOF. Scalars become int64 or float64, vectors []any.
func Parse(r io.Reader) (param.Map, error) {
	p := &parser{}
	p.s.Init(r)
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	p.s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || ch == '.' && i >= 0 ||
			'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' ||
			'0' <= ch && ch <= '9' && i > 0
	}
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail("%s", msg)
	}
	p.next()

	out := make(param.Map)
	for p.tok != scanner.EOF && p.err == nil {
		if p.tok == ';' {
			p.next()
			continue
		}
		name := p.name()
		p.assign()
		v := p.value()
		if p.err != nil {
			break
		}
		out[name] = v.export()
	}
	if p.err != nil {
		return nil, p.err
	}
	return out, nil
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w at %s: %s", ErrSyntax, p.s.Position, fmt.Sprintf(format, args...))
	}
}

// next advances to the next token, skipping # comments.
func (p *parser) next() {
	for {
		p.tok = p.s.Scan()
		if p.tok != '#' {
			return
		}
		for ch := p.s.Peek(); ch != '\n' && ch != scanner.EOF; ch = p.s.Peek() {
			p.s.Next()
		}
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %q, found %q", tok, p.s.TokenText())
		return
	}
	p.next()
}

func (p *parser) name() string {
	switch p.tok {
	case scanner.Ident:
		name := p.s.TokenText()
		p.next()
		return name
	case scanner.String:
		name, err := strconv.Unquote(p.s.TokenText())
		if err != nil {
			p.fail("bad name %s", p.s.TokenText())
		}
		p.next()
		return name
	}
	p.fail("expected a name, found %q", p.s.TokenText())
	return ""
}

func (p *parser) assign() {
	switch p.tok {
	case '=':
		p.next()
	case '<':
		p.next()
		p.expect('-')
	default:
		p.fail("expected <- or =, found %q", p.s.TokenText())
	}
}

// value is a parsed R vector. dim is set only for structure(...) arrays.
type value struct {
	nums   []float64
	strs   []string
	isInt  bool
	scalar bool
	dim    []int
}

func (p *parser) value() value {
	if p.err != nil {
		return value{}
	}
	switch p.tok {
	case scanner.String:
		s, err := strconv.Unquote(p.s.TokenText())
		if err != nil {
			p.fail("bad string %s", p.s.TokenText())
		}
		p.next()
		return value{strs: []string{s}, scalar: true}
	case scanner.Ident:
		switch fn := p.s.TokenText(); fn {
		case "c":
			return p.concat()
		case "structure":
			return p.structure()
		case "integer", "double", "numeric":
			p.next()
			p.expect('(')
			n := p.number()
			p.expect(')')
			if n.isInt && len(n.nums) == 1 && n.nums[0] >= 0 {
				return value{nums: make([]float64, int(n.nums[0])), isInt: fn == "integer"}
			}
			p.fail("%s() needs a non-negative integer length", fn)
			return value{}
		}
	}

	v := p.number()
	if p.tok == ':' {
		p.next()
		hi := p.number()
		return p.seq(v, hi)
	}
	return v
}

func (p *parser) concat() value {
	p.next()
	p.expect('(')
	out := value{isInt: true}
	for p.tok != ')' && p.err == nil {
		v := p.value()
		if len(v.strs) > 0 {
			if len(out.nums) > 0 {
				p.fail("mixed strings and numbers in c()")
			}
			out.strs = append(out.strs, v.strs...)
		} else {
			if len(out.strs) > 0 {
				p.fail("mixed strings and numbers in c()")
			}
			out.nums = append(out.nums, v.nums...)
			out.isInt = out.isInt && v.isInt
		}
		if p.tok == ',' {
			p.next()
		} else if p.tok != ')' {
			p.fail("expected , or ) in c(), found %q", p.s.TokenText())
		}
	}
	p.expect(')')
	return out
}

func (p *parser) structure() value {
	p.next()
	p.expect('(')
	data := p.value()
	p.expect(',')
	if p.tok != scanner.Ident || p.s.TokenText() != ".Dim" {
		p.fail("expected .Dim in structure(), found %q", p.s.TokenText())
		return value{}
	}
	p.next()
	p.expect('=')
	dims := p.value()
	p.expect(')')
	if p.err != nil {
		return value{}
	}

	if !dims.isInt || len(dims.nums) == 0 {
		p.fail(".Dim must be an integer vector")
		return value{}
	}
	n := 1
	for _, d := range dims.nums {
		data.dim = append(data.dim, int(d))
		n *= int(d)
	}
	if n != len(data.nums) {
		p.fail(".Dim %v does not match %d values", data.dim, len(data.nums))
	}
	data.scalar = false
	return data
}

func (p *parser) seq(lo, hi value) value {
	if !lo.isInt || !hi.isInt || len(lo.nums) != 1 || len(hi.nums) != 1 {
		p.fail("range bounds must be integers")
		return value{}
	}
	a, b := int(lo.nums[0]), int(hi.nums[0])
	step := 1
	if b < a {
		step = -1
	}
	out := value{isInt: true}
	for i := a; ; i += step {
		out.nums = append(out.nums, float64(i))
		if i == b {
			break
		}
	}
	return out
}

// number reads a signed numeric literal, including Inf, NA, NaN and the
// logical constants.
func (p *parser) number() value {
	sign := 1.0
	for p.tok == '-' || p.tok == '+' {
		if p.tok == '-' {
			sign = -sign
		}
		p.next()
	}

	text := p.s.TokenText()
	switch tok := p.tok; tok {
	case scanner.Int, scanner.Float:
		p.next()
		isInt := tok == scanner.Int
		if p.tok == scanner.Ident && p.s.TokenText() == "L" {
			isInt = true
			p.next()
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail("bad number %s", text)
		}
		return value{nums: []float64{sign * f}, isInt: isInt, scalar: true}
	case scanner.Ident:
		var f float64
		isInt := false
		switch text {
		case "Inf":
			f = math.Inf(1)
		case "NA", "NaN", "NA_real_", "NA_integer_":
			f = math.NaN()
		case "TRUE", "T":
			f, isInt = 1, true
		case "FALSE", "F":
			f, isInt = 0, true
		default:
			// A leading dot scans as an identifier: .5
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				p.fail("unexpected identifier %q", text)
				return value{}
			}
			f = v
		}
		p.next()
		return value{nums: []float64{sign * f}, isInt: isInt, scalar: true}
	}
	p.fail("expected a number, found %q", text)
	return value{}
}

// export converts the parsed vector to the mapping's value types.
func (v value) export() any {
	if len(v.strs) > 0 {
		if v.scalar {
			return v.strs[0]
		}
		out := make([]any, len(v.strs))
		for i, s := range v.strs {
			out[i] = s
		}
		return out
	}

	elem := func(f float64) any {
		if v.isInt {
			return int64(f)
		}
		return f
	}
	if v.scalar {
		return elem(v.nums[0])
	}
	if len(v.dim) <= 1 {
		out := make([]any, len(v.nums))
		for i, f := range v.nums {
			out[i] = elem(f)
		}
		return out
	}

	strides := make([]int, len(v.dim))
	stride := 1
	for k, d := range v.dim {
		strides[k] = stride
		stride *= d
	}
	var build func(k, offset int) []any
	build = func(k, offset int) []any {
		out := make([]any, v.dim[k])
		for i := range out {
			off := offset + i*strides[k]
			if k == len(v.dim)-1 {
				out[i] = elem(v.nums[off])
			} else {
				out[i] = build(k+1, off)
			}
		}
		return out
	}
	return build(0, 0)
}
