package stream

import "bytes"

// A LineFramer turns a sequence of byte chunks into a sequence of complete
// lines. Bytes after the last newline of a chunk are carried over and prefixed
// to the next chunk, so a line split at an arbitrary byte offset, including in
// the middle of a UTF-8 code point, comes out whole. One framer serves one open
// stream; a final unterminated fragment is never emitted.
type LineFramer struct {
	buf []byte
}

// Feed appends chunk to the carry-over buffer and returns the lines it
// completed, without their trailing newline. Splitting works on raw bytes;
// a multi-byte rune spanning two chunks stays buffered until its line ends.
func (f *LineFramer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(f.buf[:i]))
		f.buf = f.buf[i+1:]
	}
}
