package ojson

import (
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// ParseOptions controls Parse's key-comparison behavior.
type ParseOptions struct {
	// CaseInsensitiveKeys makes duplicate-key detection compare keys
	// case-insensitively instead of exactly.
	CaseInsensitiveKeys bool
}

// Parse decodes a single JSON object or array from data.
func Parse(data []byte) (any, error) {
	return ParseWithOptions(data, ParseOptions{})
}

// ParseWithOptions decodes a single JSON object or array from data using
// opts. Only a top-level object or array is accepted; any other top-level
// value, or trailing bytes after it, is an error.
func ParseWithOptions(data []byte, opts ParseOptions) (any, error) {
	d := &decoder{data: data, opts: opts}
	d.skipWS()
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("ojson: empty input")
	}
	switch d.data[d.pos] {
	case '{', '[':
	default:
		return nil, fmt.Errorf("ojson: top-level value must be an object or array")
	}

	v, err := d.parseValue()
	if err != nil {
		return nil, err
	}
	d.skipWS()
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("ojson: trailing data at offset %d", d.pos)
	}
	return v, nil
}

type decoder struct {
	data []byte
	pos  int
	opts ParseOptions
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (d *decoder) skipWS() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) peekByte() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	return d.data[d.pos]
}

func (d *decoder) hasPrefix(lit string) bool {
	return d.pos+len(lit) <= len(d.data) && string(d.data[d.pos:d.pos+len(lit)]) == lit
}

func (d *decoder) parseValue() (any, error) {
	d.skipWS()
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("ojson: unexpected end of input")
	}
	switch d.data[d.pos] {
	case '{':
		return d.parseObject()
	case '[':
		return d.parseArray()
	case '"':
		return d.parseString()
	case 't':
		if d.hasPrefix("true") {
			d.pos += 4
			return true, nil
		}
		return nil, fmt.Errorf("ojson: invalid literal at offset %d", d.pos)
	case 'f':
		if d.hasPrefix("false") {
			d.pos += 5
			return false, nil
		}
		return nil, fmt.Errorf("ojson: invalid literal at offset %d", d.pos)
	case 'n':
		if d.hasPrefix("null") {
			d.pos += 4
			return nil, nil
		}
		return nil, fmt.Errorf("ojson: invalid literal at offset %d", d.pos)
	default:
		if d.data[d.pos] == '-' || isDigit(d.data[d.pos]) {
			return d.parseNumber()
		}
		return nil, fmt.Errorf("ojson: unexpected character %q at offset %d", d.data[d.pos], d.pos)
	}
}

func (d *decoder) parseObject() (*Object, error) {
	d.pos++ // consume '{'
	obj := NewObject()
	d.skipWS()
	if d.peekByte() == '}' {
		d.pos++
		return obj, nil
	}
	for {
		d.skipWS()
		if d.peekByte() != '"' {
			return nil, fmt.Errorf("ojson: expected string key at offset %d", d.pos)
		}
		key, err := d.parseString()
		if err != nil {
			return nil, err
		}
		d.skipWS()
		if d.peekByte() != ':' {
			return nil, fmt.Errorf("ojson: expected ':' at offset %d", d.pos)
		}
		d.pos++
		val, err := d.parseValue()
		if err != nil {
			return nil, err
		}
		if !obj.insertUnique(key, val, d.opts.CaseInsensitiveKeys) {
			return nil, fmt.Errorf("ojson: duplicate key %q", key)
		}
		d.skipWS()
		switch d.peekByte() {
		case ',':
			d.pos++
		case '}':
			d.pos++
			return obj, nil
		default:
			return nil, fmt.Errorf("ojson: expected ',' or '}' at offset %d", d.pos)
		}
	}
}

func (d *decoder) parseArray() ([]any, error) {
	d.pos++ // consume '['
	arr := []any{}
	d.skipWS()
	if d.peekByte() == ']' {
		d.pos++
		return arr, nil
	}
	for {
		v, err := d.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
		d.skipWS()
		switch d.peekByte() {
		case ',':
			d.pos++
		case ']':
			d.pos++
			return arr, nil
		default:
			return nil, fmt.Errorf("ojson: expected ',' or ']' at offset %d", d.pos)
		}
	}
}

func (d *decoder) parseString() (string, error) {
	if d.peekByte() != '"' {
		return "", fmt.Errorf("ojson: expected string at offset %d", d.pos)
	}
	d.pos++
	var out []byte
	for {
		if d.pos >= len(d.data) {
			return "", fmt.Errorf("ojson: unterminated string")
		}
		c := d.data[d.pos]
		switch {
		case c == '"':
			d.pos++
			return string(out), nil
		case c == '\\':
			d.pos++
			if d.pos >= len(d.data) {
				return "", fmt.Errorf("ojson: unterminated escape")
			}
			switch d.data[d.pos] {
			case '"':
				out = append(out, '"')
				d.pos++
			case '\\':
				out = append(out, '\\')
				d.pos++
			case '/':
				out = append(out, '/')
				d.pos++
			case 'b':
				out = append(out, '\b')
				d.pos++
			case 'f':
				out = append(out, '\f')
				d.pos++
			case 'n':
				out = append(out, '\n')
				d.pos++
			case 'r':
				out = append(out, '\r')
				d.pos++
			case 't':
				out = append(out, '\t')
				d.pos++
			case 'u':
				r, err := d.readUnicodeEscape()
				if err != nil {
					return "", err
				}
				var buf [utf8.UTFMax]byte
				n := utf8.EncodeRune(buf[:], r)
				out = append(out, buf[:n]...)
			default:
				return "", fmt.Errorf("ojson: invalid escape \\%c at offset %d", d.data[d.pos], d.pos)
			}
		case c < 0x20:
			return "", fmt.Errorf("ojson: control character 0x%02x in string at offset %d", c, d.pos)
		default:
			out = append(out, c)
			d.pos++
		}
	}
}

// readUnicodeEscape consumes "u" plus four hex digits (d.pos at 'u' on
// entry) and, for a high surrogate, the following "\uHHHH" low surrogate.
func (d *decoder) readUnicodeEscape() (rune, error) {
	hi, err := d.readHex4()
	if err != nil {
		return 0, err
	}
	r := rune(hi)
	if r >= 0xD800 && r <= 0xDBFF &&
		d.pos+1 < len(d.data) && d.data[d.pos] == '\\' && d.data[d.pos+1] == 'u' {
		d.pos++ // step over '\\' so d.pos is at 'u', as readHex4 expects
		lo, err := d.readHex4()
		if err != nil {
			return 0, err
		}
		if lo >= 0xDC00 && lo <= 0xDFFF {
			return utf16.DecodeRune(r, rune(lo)), nil
		}
		return utf8.RuneError, nil
	}
	return r, nil
}

// readHex4 consumes exactly four hex digits following the 'u' at d.pos.
func (d *decoder) readHex4() (uint16, error) {
	if d.pos+5 > len(d.data) {
		return 0, fmt.Errorf("ojson: truncated \\u escape at offset %d", d.pos)
	}
	hex := d.data[d.pos+1 : d.pos+5]
	v, err := strconv.ParseUint(string(hex), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("ojson: invalid \\u escape %q at offset %d", hex, d.pos)
	}
	d.pos += 5
	return uint16(v), nil
}

func (d *decoder) parseNumber() (any, error) {
	start := d.pos
	if d.peekByte() == '-' {
		d.pos++
	}
	if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
		return nil, fmt.Errorf("ojson: invalid number at offset %d", start)
	}
	if d.data[d.pos] == '0' {
		d.pos++
	} else {
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}

	isFloat := false
	if d.pos < len(d.data) && d.data[d.pos] == '.' {
		isFloat = true
		d.pos++
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return nil, fmt.Errorf("ojson: invalid number at offset %d", start)
		}
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	if d.pos < len(d.data) && (d.data[d.pos] == 'e' || d.data[d.pos] == 'E') {
		isFloat = true
		d.pos++
		if d.pos < len(d.data) && (d.data[d.pos] == '+' || d.data[d.pos] == '-') {
			d.pos++
		}
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return nil, fmt.Errorf("ojson: invalid number at offset %d", start)
		}
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}

	tok := string(d.data[start:d.pos])
	if isFloat {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("ojson: invalid number %q: %w", tok, err)
		}
		return f, nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			return nil, fmt.Errorf("ojson: invalid number %q: %w", tok, err)
		}
		return f, nil
	}
	return i, nil
}
