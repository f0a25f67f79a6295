package codec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// decoder reads little-endian primitives from an in-memory buffer. Every
// read checks the remaining length first.
type decoder struct {
	data []byte
	off  int
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) take(n int, what string) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, corruptf("truncated %s at offset %d: need %d bytes, have %d", what, d.off, n, d.remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) uint32(what string) (uint32, error) {
	b, err := d.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) uint64(what string) (uint64, error) {
	b, err := d.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) int64(what string) (int64, error) {
	v, err := d.uint64(what)
	return int64(v), err
}

func (d *decoder) float64(what string) (float64, error) {
	v, err := d.uint64(what)
	return math.Float64frombits(v), err
}

func (d *decoder) bool(what string) (bool, error) {
	v, err := d.uint32(what)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, corruptf("%s: invalid boolean %d", what, v)
	}
}

func (d *decoder) string(what string) (string, error) {
	n, err := d.uint32(what + " length")
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n), what)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// count reads a list length and rejects lengths that could not fit in the
// remaining input given each element's minimum encoded size.
func (d *decoder) count(what string, minElem int) (int, error) {
	n, err := d.uint32(what + " count")
	if err != nil {
		return 0, err
	}
	if int64(n)*int64(minElem) > int64(d.remaining()) {
		return 0, corruptf("%s count %d exceeds remaining %d bytes", what, n, d.remaining())
	}
	return int(n), nil
}

func (d *decoder) magic(want string, what string) error {
	b, err := d.take(len(want), what)
	if err != nil {
		return err
	}
	if !bytes.Equal(b, []byte(want)) {
		return corruptf("%s: expected %q, found %q", what, want, b)
	}
	return nil
}

func (d *decoder) header(magic string, version uint32) error {
	if err := d.magic(magic, "magic"); err != nil {
		return err
	}
	got, err := d.uint32("version")
	if err != nil {
		return err
	}
	if got != version {
		return corruptf("unsupported version %d (expected %d)", got, version)
	}
	return nil
}

func (d *decoder) end() error {
	if d.remaining() != 0 {
		return corruptf("%d trailing bytes at offset %d", d.remaining(), d.off)
	}
	return nil
}

// encoder appends little-endian primitives to a buffer.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) bool(v bool) {
	if v {
		e.uint32(1)
		return
	}
	e.uint32(0)
}

func (e *encoder) string(s string) {
	e.uint32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) raw(s string) {
	e.buf.WriteString(s)
}

func (e *encoder) header(magic string, version uint32) {
	e.raw(magic)
	e.uint32(version)
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}
