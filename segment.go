package tcpwire

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Segment is a decoded view over a caller-owned byte region. The
// options region and payload alias the buffer handed to ParseSegment;
// the view is only valid for that buffer's lifetime and nothing is
// retained by the codec.
type Segment struct {
	Header  Header
	options []byte
	payload []byte
}

// Options returns a fresh iterator over the segment's options region.
func (s *Segment) Options() OptionIter { return Options(s.options) }

// OptionBytes returns the raw options region, padding included.
func (s *Segment) OptionBytes() []byte { return s.options }

// Payload returns the bytes after the header and options.
func (s *Segment) Payload() []byte { return s.payload }

// AppendSegment builds a complete wire-ready segment (header, options,
// payload, checksum patched in) and appends it to dst, returning the
// extended slice. Appending to a slice with enough capacity performs no
// allocation. The pseudo-header supplies the IP-layer checksum inputs;
// h.DataOffset may be zero to have it computed from the options.
func AppendSegment(dst []byte, ph PseudoHeader, h Header, opts []Option, payload []byte) ([]byte, error) {
	if !ph.Valid() {
		return dst, fmt.Errorf("%w: src %v, dst %v", ErrPseudoHeader, ph.Src, ph.Dst)
	}
	optLen, err := EncodedOptionsLen(opts)
	if err != nil {
		return dst, err
	}

	base := len(dst)
	segLen := HeaderLen + optLen + len(payload)
	dst = slices.Grow(dst, segLen)[:base+segLen]
	seg := dst[base:]

	if _, err := EncodeHeader(seg, h, optLen); err != nil {
		return dst[:base], err
	}
	if _, err := EncodeOptions(seg[HeaderLen:], opts); err != nil {
		return dst[:base], err
	}
	copy(seg[HeaderLen+optLen:], payload)

	// Checksum field is still the zero placeholder here, so summing the
	// assembled bytes directly is the RFC computation.
	binary.BigEndian.PutUint16(seg[16:], Checksum(ph, seg))
	return dst, nil
}

// BuildSegment is AppendSegment into a fresh buffer.
func BuildSegment(ph PseudoHeader, h Header, opts []Option, payload []byte) ([]byte, error) {
	return AppendSegment(nil, ph, h, opts, payload)
}

// ParseSegment decodes buf as one TCP segment under the given
// pseudo-header. The checksum is verified before any field is trusted:
// on mismatch the error is ErrChecksumMismatch, but the structurally
// decoded view is still returned so diagnostic callers can inspect the
// damaged segment; dropping it is the transport layer's call. On a
// clean checksum the options region is validated eagerly, so a
// truncated option surfaces here rather than mid-iteration. No retry
// logic lives at this layer.
func ParseSegment(ph PseudoHeader, buf []byte) (Segment, error) {
	if !ph.Valid() {
		return Segment{}, fmt.Errorf("%w: src %v, dst %v", ErrPseudoHeader, ph.Src, ph.Dst)
	}
	h, rest, err := DecodeHeader(buf)
	if err != nil {
		return Segment{}, err
	}
	optLen := h.Len() - HeaderLen
	seg := Segment{Header: h, options: rest[:optLen], payload: rest[optLen:]}
	if !Verify(ph, buf) {
		return seg, ErrChecksumMismatch
	}
	if err := validateOptions(seg.options); err != nil {
		return Segment{}, err
	}
	return seg, nil
}
