package tcpwire

import (
	"encoding/binary"
	"fmt"
)

// OptionKind identifies a TCP option. Kinds beyond the three the codec
// understands are carried opaquely.
type OptionKind uint8

const (
	OptEndOfList OptionKind = 0
	OptNOP       OptionKind = 1
	OptMSS       OptionKind = 2
)

// Option is one element of the variable-length options area.
// MSS is meaningful only for OptMSS; Data holds the raw payload (bytes
// after kind and length) for unrecognized kinds and aliases the decode
// input, it is never copied.
type Option struct {
	Kind OptionKind
	MSS  uint16
	Data []byte
}

// encodedLen is the on-wire size of a single option.
func (o Option) encodedLen() int {
	switch o.Kind {
	case OptEndOfList, OptNOP:
		return 1
	case OptMSS:
		return 4
	default:
		return 2 + len(o.Data)
	}
}

func (o Option) String() string {
	switch o.Kind {
	case OptEndOfList:
		return "EOL"
	case OptNOP:
		return "NOP"
	case OptMSS:
		return fmt.Sprintf("MSS=%d", o.MSS)
	default:
		return fmt.Sprintf("opt(%d,%d bytes)", o.Kind, len(o.Data))
	}
}

// EncodedOptionsLen returns the wire length of opts after padding to a
// 4-byte boundary. An EndOfList option terminates the sequence; anything
// after it is not counted. Fails with ErrOptionTooLong if a single
// option overflows its 8-bit length field, or ErrOptionsTooLong if the
// padded total exceeds the 40 bytes a 15-word data offset can address.
func EncodedOptionsLen(opts []Option) (int, error) {
	var n int
	for _, o := range opts {
		l := o.encodedLen()
		if l > 0xff {
			return 0, fmt.Errorf("%w: kind %d payload %d bytes", ErrOptionTooLong, o.Kind, len(o.Data))
		}
		n += l
		if o.Kind == OptEndOfList {
			break
		}
	}
	n = (n + 3) &^ 3
	if n > MaxOptionsLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrOptionsTooLong, n)
	}
	return n, nil
}

// EncodeOptions serializes opts into dst in order, zero-padding to the
// next 4-byte boundary, and returns the padded length. EndOfList
// terminates the sequence on the wire as it does logically. dst must
// hold EncodedOptionsLen(opts) bytes.
func EncodeOptions(dst []byte, opts []Option) (int, error) {
	total, err := EncodedOptionsLen(opts)
	if err != nil {
		return 0, err
	}
	if len(dst) < total {
		return 0, fmt.Errorf("%w: need %d bytes for options, have %d", ErrTooShort, total, len(dst))
	}
	n := 0
	for _, o := range opts {
		switch o.Kind {
		case OptNOP:
			dst[n] = byte(OptNOP)
			n++
		case OptMSS:
			dst[n] = byte(OptMSS)
			dst[n+1] = 4
			binary.BigEndian.PutUint16(dst[n+2:], o.MSS)
			n += 4
		case OptEndOfList:
			dst[n] = byte(OptEndOfList)
			n++
		default:
			dst[n] = byte(o.Kind)
			dst[n+1] = byte(2 + len(o.Data))
			copy(dst[n+2:], o.Data)
			n += 2 + len(o.Data)
		}
		if o.Kind == OptEndOfList {
			break
		}
	}
	for ; n < total; n++ {
		dst[n] = 0
	}
	return total, nil
}

// OptionIter walks an options region lazily without copying. Iteration
// stops at an EndOfList option (surfaced as the final element) or the
// end of the region. Check Err after Next returns false: a truncated or
// self-inconsistent option is ErrMalformedOption, never silent partial
// success.
//
//	it := seg.Options()
//	for opt, ok := it.Next(); ok; opt, ok = it.Next() { … }
//	if err := it.Err(); err != nil { … }
type OptionIter struct {
	region []byte
	rest   []byte
	err    error
	done   bool
}

// Options returns an iterator over a raw options region.
func Options(region []byte) OptionIter {
	return OptionIter{region: region, rest: region}
}

// Next returns the next option. It returns false at the end of the
// region, after an EndOfList, or on a malformed option.
func (it *OptionIter) Next() (Option, bool) {
	if it.done || it.err != nil || len(it.rest) == 0 {
		it.done = true
		return Option{}, false
	}
	kind := OptionKind(it.rest[0])
	switch kind {
	case OptEndOfList:
		it.done = true
		return Option{Kind: OptEndOfList}, true
	case OptNOP:
		it.rest = it.rest[1:]
		return Option{Kind: OptNOP}, true
	}
	if len(it.rest) < 2 {
		it.err = fmt.Errorf("%w: kind %d truncated before length byte", ErrMalformedOption, kind)
		return Option{}, false
	}
	length := int(it.rest[1])
	if length < 2 {
		it.err = fmt.Errorf("%w: kind %d declares length %d", ErrMalformedOption, kind, length)
		return Option{}, false
	}
	if length > len(it.rest) {
		it.err = fmt.Errorf("%w: kind %d declares length %d with %d bytes left", ErrMalformedOption, kind, length, len(it.rest))
		return Option{}, false
	}
	body := it.rest[2:length]
	it.rest = it.rest[length:]
	// MSS is recognized only at its fixed length; any other shape passes
	// through opaquely for forward compatibility.
	if kind == OptMSS && length == 4 {
		return Option{Kind: OptMSS, MSS: binary.BigEndian.Uint16(body)}, true
	}
	return Option{Kind: kind, Data: body}, true
}

// Err returns the decode error that stopped iteration, if any.
func (it *OptionIter) Err() error { return it.err }

// Reset rewinds the iterator to the start of its region.
func (it *OptionIter) Reset() {
	it.rest = it.region
	it.err = nil
	it.done = false
}

// ParseOptions collects a full options region into a slice. Unlike the
// iterator it allocates; it exists for callers that want the sequence
// materialized, and for tests.
func ParseOptions(region []byte) ([]Option, error) {
	var opts []Option
	it := Options(region)
	for {
		o, ok := it.Next()
		if !ok {
			return opts, it.Err()
		}
		opts = append(opts, o)
	}
}

// validateOptions walks the region without materializing anything,
// returning the error an iteration would hit.
func validateOptions(region []byte) error {
	it := Options(region)
	for {
		if _, ok := it.Next(); !ok {
			return it.Err()
		}
	}
}
