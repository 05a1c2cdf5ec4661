// Package tarstream implements a streaming reader over the ustar/pax/GNU tar
// dialects, sufficient to walk a package tarball and pull out named entries
// without buffering the whole archive.
package tarstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const blockSize = 512

// Header describes one logical tar entry after pax/GNU overrides have been
// applied.
type Header struct {
	Name     string
	Size     int64
	Typeflag byte
	ModTime  int64 // seconds since epoch
	Linkname string
}

const (
	TypeRegular byte = '0'
	TypeRegularOld byte = 0
	TypeDir     byte = '5'
	TypeLongName byte = 'L'
	TypePaxExtended byte = 'x'
	TypePaxGlobal   byte = 'g'
)

// Reader walks a sequence of 512-byte tar blocks. Callers alternate between
// Next (advance to the next logical entry) and reading from the io.Reader
// returned alongside it for that entry's payload.
type Reader struct {
	r   *bufio.Reader
	// pending holds the entry currently being read from; consuming Next
	// discards any unread payload and trailing padding.
	pending *entryReader

	// state chained across entries by pax/GNU meta records.
	nextNameOverride string
	haveNextName     bool
	paxNext          map[string]string
	paxGlobal        map[string]string
}

// NewReader wraps r (already gzip-decompressed) as a tar block stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, blockSize*4)}
}

// Next advances to the next logical (non-meta) entry, applying any pending
// pax/GNU overrides, and returns its header plus a reader bounded to its
// payload. io.EOF is returned when the archive's terminating zero blocks (or
// a truncated final block) are reached.
func (r *Reader) Next() (Header, io.Reader, error) {
	if r.pending != nil {
		if err := r.pending.drain(); err != nil {
			return Header{}, nil, err
		}
		r.pending = nil
	}

	for {
		block, err := r.readBlock()
		if err != nil {
			return Header{}, nil, err
		}
		if block == nil {
			return Header{}, nil, io.EOF
		}

		raw, err := decodeHeader(block)
		if err != nil {
			// Malformed header block: treat as end of archive, matching the
			// "truncated header ends the archive cleanly" rule.
			return Header{}, nil, io.EOF
		}
		if raw.name == "" {
			return Header{}, nil, io.EOF
		}

		switch raw.typeflag {
		case TypeLongName:
			name, err := r.readMetaPayload(raw.size)
			if err != nil {
				return Header{}, nil, err
			}
			r.nextNameOverride = strings.TrimRight(name, "\x00")
			r.haveNextName = true
			continue

		case TypePaxExtended:
			payload, err := r.readMetaPayload(raw.size)
			if err != nil {
				return Header{}, nil, err
			}
			records, perr := parsePaxRecords(payload)
			if perr != nil {
				// Malformed pax block: its records are discarded without
				// being reported, and reading resumes at the next header.
				continue
			}
			r.paxNext = records
			continue

		case TypePaxGlobal:
			payload, err := r.readMetaPayload(raw.size)
			if err != nil {
				return Header{}, nil, err
			}
			records, perr := parsePaxRecords(payload)
			if perr == nil {
				if r.paxGlobal == nil {
					r.paxGlobal = map[string]string{}
				}
				for k, v := range records {
					r.paxGlobal[k] = v
				}
			}
			continue

		default:
			hdr := r.applyOverrides(raw)
			pr := &entryReader{r: r, remaining: hdr.Size, padding: paddingFor(hdr.Size)}
			r.pending = pr
			return hdr, pr, nil
		}
	}
}

func paddingFor(size int64) int64 {
	rem := size % blockSize
	if rem == 0 {
		return 0
	}
	return blockSize - rem
}

// applyOverrides merges pax-global, pax-next, and GNU long-name state onto
// raw, then clears the per-entry (non-global) state.
func (r *Reader) applyOverrides(raw rawHeader) Header {
	hdr := Header{
		Name:     raw.name,
		Size:     raw.size,
		Typeflag: raw.typeflag,
		ModTime:  raw.mtime,
		Linkname: raw.linkname,
	}

	apply := func(m map[string]string) {
		if m == nil {
			return
		}
		if v, ok := m["path"]; ok {
			hdr.Name = v
		}
		if v, ok := m["linkpath"]; ok {
			hdr.Linkname = v
		}
		if v, ok := m["size"]; ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				hdr.Size = n
			}
		}
		if v, ok := m["mtime"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				hdr.ModTime = int64(f)
			}
		}
	}
	apply(r.paxGlobal)
	apply(r.paxNext)

	if r.haveNextName {
		hdr.Name = r.nextNameOverride
	}

	r.paxNext = nil
	r.haveNextName = false
	r.nextNameOverride = ""

	return hdr
}

// readMetaPayload reads a meta entry's (L/x/g) payload of exactly size bytes
// plus its block padding, in full — these are small control records, not
// streamed to callers.
func (r *Reader) readMetaPayload(size int64) (string, error) {
	padded := size + paddingFor(size)
	buf := make([]byte, padded)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", fmt.Errorf("tarstream: truncated meta record: %w", err)
	}
	return string(buf[:size]), nil
}

// readBlock reads one 512-byte block. A nil, nil result means the archive's
// two-zero-block terminator (or immediate EOF in its place) was reached.
func (r *Reader) readBlock() ([]byte, error) {
	block := make([]byte, blockSize)
	n, err := io.ReadFull(r.r, block)
	if err == io.EOF {
		return nil, nil
	}
	if err == io.ErrUnexpectedEOF {
		// Truncated final block: end the archive cleanly.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if n < blockSize {
		return nil, nil
	}
	if isZeroBlock(block) {
		return nil, nil
	}
	return block, nil
}

func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

var errPaxMalformed = errors.New("tarstream: malformed pax record")

// parsePaxRecords decodes a sequence of "<len> <key>=<value>\n" records.
// Values are taken as-is (UTF-8); an hdrcharset record that names a
// different encoding is not honored.
func parsePaxRecords(data string) (map[string]string, error) {
	out := map[string]string{}
	for len(data) > 0 {
		sp := strings.IndexByte(data, ' ')
		if sp < 0 {
			return nil, errPaxMalformed
		}
		n, err := strconv.Atoi(data[:sp])
		if err != nil || n <= sp+1 || n > len(data) {
			return nil, errPaxMalformed
		}
		record := data[:n]
		rest := record[sp+1:]
		eq := strings.IndexByte(rest, '=')
		if eq < 0 || len(rest) == 0 || rest[len(rest)-1] != '\n' {
			return nil, errPaxMalformed
		}
		key := rest[:eq]
		value := rest[eq+1 : len(rest)-1]
		out[key] = value
		data = data[n:]
	}
	return out, nil
}

// entryReader bounds reads to a single entry's payload and knows how to
// skip whatever the caller left unread plus the block padding.
type entryReader struct {
	r         *Reader
	remaining int64
	padding   int64
}

func (e *entryReader) Read(p []byte) (int, error) {
	if e.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.remaining {
		p = p[:e.remaining]
	}
	n, err := e.r.r.Read(p)
	e.remaining -= int64(n)
	return n, err
}

// drain discards any unread payload and the trailing padding so the block
// stream is aligned for the next header.
func (e *entryReader) drain() error {
	if e.remaining > 0 {
		if _, err := io.CopyN(io.Discard, e.r.r, e.remaining); err != nil {
			return fmt.Errorf("tarstream: skipping unread payload: %w", err)
		}
		e.remaining = 0
	}
	if e.padding > 0 {
		if _, err := io.CopyN(io.Discard, e.r.r, e.padding); err != nil {
			return fmt.Errorf("tarstream: skipping payload padding: %w", err)
		}
		e.padding = 0
	}
	return nil
}
