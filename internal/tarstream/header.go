package tarstream

import "fmt"

// rawHeader is the header block decoded verbatim, before pax/GNU overrides.
type rawHeader struct {
	name     string
	size     int64
	mtime    int64
	typeflag byte
	linkname string
	magic    string
	prefix   string
}

// Fixed field offsets within a 512-byte ustar header block.
const (
	offName     = 0
	lenName     = 100
	offMode     = 100
	lenMode     = 8
	offUID      = 108
	lenUID      = 8
	offGID      = 116
	lenGID      = 8
	offSize     = 124
	lenSize     = 12
	offMtime    = 136
	lenMtime    = 12
	offChksum   = 148
	lenChksum   = 8
	offTypeflag = 156
	lenTypeflag = 1
	offLinkname = 157
	lenLinkname = 100
	offMagic    = 257
	lenMagic    = 6
	offVersion  = 263
	lenVersion  = 2
	offUname    = 265
	lenUname    = 32
	offGname    = 297
	lenGname    = 32
	offDevmajor = 329
	lenDevmajor = 8
	offDevminor = 337
	lenDevminor = 8
	offPrefix   = 345
	lenPrefix   = 155
)

func decodeHeader(block []byte) (rawHeader, error) {
	if len(block) != blockSize {
		return rawHeader{}, fmt.Errorf("tarstream: short header block")
	}

	name := cstring(block[offName : offName+lenName])
	if name == "" {
		return rawHeader{}, nil
	}

	size, err := parseOctal(block[offSize : offSize+lenSize])
	if err != nil {
		return rawHeader{}, fmt.Errorf("tarstream: invalid size field: %w", err)
	}
	mtime, err := parseOctal(block[offMtime : offMtime+lenMtime])
	if err != nil {
		return rawHeader{}, fmt.Errorf("tarstream: invalid mtime field: %w", err)
	}

	magic := string(block[offMagic : offMagic+lenMagic])
	prefix := cstring(block[offPrefix : offPrefix+lenPrefix])

	if isUstarMagic(magic) && prefix != "" {
		name = prefix + "/" + name
	}

	return rawHeader{
		name:     name,
		size:     size,
		mtime:    mtime,
		typeflag: block[offTypeflag],
		linkname: cstring(block[offLinkname : offLinkname+lenLinkname]),
		magic:    magic,
		prefix:   prefix,
	}, nil
}

func isUstarMagic(magic string) bool {
	return len(magic) >= 5 && magic[:5] == "ustar"
}

// cstring trims a fixed-width, NUL-terminated field to its logical content.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// parseOctal decodes a zero-padded ASCII octal field. Leading spaces are
// permitted as padding; parsing stops at the first non-octal digit (which
// includes the trailing NUL/space terminator ustar writes).
func parseOctal(b []byte) (int64, error) {
	var i int
	for i < len(b) && (b[i] == ' ' || b[i] == 0) {
		i++
	}
	var n int64
	seen := false
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '7' {
			break
		}
		n = n<<3 | int64(c-'0')
		seen = true
	}
	if !seen {
		return 0, nil
	}
	return n, nil
}
