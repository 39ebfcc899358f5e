package tcpwire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// HeaderLen is the fixed TCP header size in bytes.
	HeaderLen = 20
	// MaxOptionsLen is the largest options region a 15-word data offset
	// can address.
	MaxOptionsLen = 40
	// MaxHeaderLen is HeaderLen + MaxOptionsLen.
	MaxHeaderLen = 60
)

// Flag bit positions within the low flags byte, per the IANA assignment
// in RFC 9293 §6.
const (
	flagFIN = 0x01
	flagSYN = 0x02
	flagRST = 0x04
	flagPSH = 0x08
	flagACK = 0x10
	flagURG = 0x20
	flagECE = 0x40
	flagCWR = 0x80
)

// Flags is the TCP control-flag set as independent booleans. Packing to
// and from the wire byte is explicit so no bitfield layout is assumed.
type Flags struct {
	CWR bool
	ECE bool
	URG bool
	ACK bool
	PSH bool
	RST bool
	SYN bool
	FIN bool
}

// Bits packs the flags into their wire byte.
func (f Flags) Bits() uint8 {
	var b uint8
	if f.FIN {
		b |= flagFIN
	}
	if f.SYN {
		b |= flagSYN
	}
	if f.RST {
		b |= flagRST
	}
	if f.PSH {
		b |= flagPSH
	}
	if f.ACK {
		b |= flagACK
	}
	if f.URG {
		b |= flagURG
	}
	if f.ECE {
		b |= flagECE
	}
	if f.CWR {
		b |= flagCWR
	}
	return b
}

// FlagsFromBits unpacks a wire flags byte.
func FlagsFromBits(b uint8) Flags {
	return Flags{
		FIN: b&flagFIN != 0,
		SYN: b&flagSYN != 0,
		RST: b&flagRST != 0,
		PSH: b&flagPSH != 0,
		ACK: b&flagACK != 0,
		URG: b&flagURG != 0,
		ECE: b&flagECE != 0,
		CWR: b&flagCWR != 0,
	}
}

// String renders the set flags like "SYN|ACK", or "." when none are set.
func (f Flags) String() string {
	var parts []string
	if f.CWR {
		parts = append(parts, "CWR")
	}
	if f.ECE {
		parts = append(parts, "ECE")
	}
	if f.URG {
		parts = append(parts, "URG")
	}
	if f.ACK {
		parts = append(parts, "ACK")
	}
	if f.PSH {
		parts = append(parts, "PSH")
	}
	if f.RST {
		parts = append(parts, "RST")
	}
	if f.SYN {
		parts = append(parts, "SYN")
	}
	if f.FIN {
		parts = append(parts, "FIN")
	}
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "|")
}

// Header is the fixed part of a TCP segment header.
//
// On encode, DataOffset zero means "compute from the options length";
// a nonzero value must agree with it. Checksum is ignored on encode
// (the assembly layer patches the real value in) and carries the
// on-wire value on decode. Urgent is preserved bit-exactly regardless
// of the URG flag; interpreting it is the transport layer's business.
// Reserved bits are written as zero and ignored on decode.
type Header struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8 // 32-bit words, 5–15
	Flags      Flags
	Window     uint16
	Checksum   uint16
	Urgent     uint16
}

// Len returns the header length in bytes declared by DataOffset.
func (h Header) Len() int { return int(h.DataOffset) * 4 }

// EncodeHeader writes the fixed 20-byte header into dst, big-endian,
// with a zero checksum placeholder. optLen is the already-padded
// options length the header must account for; it must be a multiple of
// 4 and at most MaxOptionsLen. Returns HeaderLen.
func EncodeHeader(dst []byte, h Header, optLen int) (int, error) {
	if optLen < 0 || optLen%4 != 0 {
		return 0, fmt.Errorf("%w: options length %d not 32-bit aligned", ErrInvalidDataOffset, optLen)
	}
	if optLen > MaxOptionsLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrOptionsTooLong, optLen)
	}
	offset := uint8(5 + optLen/4)
	if h.DataOffset != 0 && h.DataOffset != offset {
		return 0, fmt.Errorf("%w: header declares %d words, options need %d", ErrInvalidDataOffset, h.DataOffset, offset)
	}
	if len(dst) < HeaderLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTooShort, HeaderLen, len(dst))
	}

	binary.BigEndian.PutUint16(dst[0:], h.SrcPort)
	binary.BigEndian.PutUint16(dst[2:], h.DstPort)
	binary.BigEndian.PutUint32(dst[4:], h.Seq)
	binary.BigEndian.PutUint32(dst[8:], h.Ack)
	dst[12] = offset << 4 // reserved bits zero
	dst[13] = h.Flags.Bits()
	binary.BigEndian.PutUint16(dst[14:], h.Window)
	binary.BigEndian.PutUint16(dst[16:], 0) // checksum placeholder
	binary.BigEndian.PutUint16(dst[18:], h.Urgent)
	return HeaderLen, nil
}

// DecodeHeader parses the fixed header from buf and returns it together
// with the bytes after the fixed 20, the options region plus payload.
// It fails with ErrTooShort when buf is under 20 bytes or shorter than
// its own declared data offset, and ErrInvalidDataOffset when the
// offset is below 5 words. The checksum is surfaced, not validated;
// validation is the assembly layer's first act after this returns.
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLen {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(buf))
	}
	offset := buf[12] >> 4
	if offset < 5 {
		return Header{}, nil, fmt.Errorf("%w: %d words", ErrInvalidDataOffset, offset)
	}
	if int(offset)*4 > len(buf) {
		return Header{}, nil, fmt.Errorf("%w: data offset %d words, buffer %d bytes", ErrTooShort, offset, len(buf))
	}
	h := Header{
		SrcPort:    binary.BigEndian.Uint16(buf[0:]),
		DstPort:    binary.BigEndian.Uint16(buf[2:]),
		Seq:        binary.BigEndian.Uint32(buf[4:]),
		Ack:        binary.BigEndian.Uint32(buf[8:]),
		DataOffset: offset,
		Flags:      FlagsFromBits(buf[13]),
		Window:     binary.BigEndian.Uint16(buf[14:]),
		Checksum:   binary.BigEndian.Uint16(buf[16:]),
		Urgent:     binary.BigEndian.Uint16(buf[18:]),
	}
	return h, buf[HeaderLen:], nil
}
