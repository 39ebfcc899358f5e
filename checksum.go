package tcpwire

import (
	"encoding/binary"
	"net/netip"
)

// ipProtoTCP is the protocol (IPv4) / next-header (IPv6) number summed
// into the pseudo-header.
const ipProtoTCP = 6

// PseudoHeader carries the IP-layer fields that feed the TCP checksum.
// Both addresses must be the same family; 4-in-6 mapped addresses are
// treated as IPv4. The TCP length word is derived from the byte regions
// handed to Checksum and Verify, so it cannot drift from the data.
//
// The pseudo-header is never transmitted. It is supplied by the IP
// layer; this package performs no address-family detection of its own.
type PseudoHeader struct {
	Src netip.Addr
	Dst netip.Addr
}

// Valid reports whether both addresses are set and share a family.
func (ph PseudoHeader) Valid() bool {
	if !ph.Src.IsValid() || !ph.Dst.IsValid() {
		return false
	}
	return ph.Src.Unmap().Is4() == ph.Dst.Unmap().Is4()
}

// sum returns the unfolded one's-complement sum of the pseudo-header
// for a TCP segment of tcpLen bytes.
func (ph PseudoHeader) sum(tcpLen int) uint32 {
	src, dst := ph.Src.Unmap(), ph.Dst.Unmap()
	var sum uint32
	if src.Is4() {
		s4, d4 := src.As4(), dst.As4()
		sum += onesSum(s4[:])
		sum += onesSum(d4[:])
	} else {
		s16, d16 := src.As16(), dst.As16()
		sum += onesSum(s16[:])
		sum += onesSum(d16[:])
	}
	sum += ipProtoTCP
	sum += uint32(tcpLen) >> 16
	sum += uint32(tcpLen) & 0xffff
	return sum
}

// Checksum computes the RFC 9293 checksum over the pseudo-header and the
// given byte regions (header with a zeroed checksum field, options,
// payload). Every region except the last must have even length; an odd
// final region is padded with a virtual zero byte that never reaches the
// wire. A zero result is legal for TCP and is returned as-is; the UDP
// 0xFFFF substitution does not apply.
func Checksum(ph PseudoHeader, parts ...[]byte) uint16 {
	var tcpLen int
	for _, p := range parts {
		tcpLen += len(p)
	}
	sum := ph.sum(tcpLen)
	for _, p := range parts {
		sum += onesSum(p)
	}
	return ^fold(sum)
}

// Verify recomputes the checksum over a full segment with the on-wire
// checksum field left in place. A correct segment sums to 0x0000.
func Verify(ph PseudoHeader, segment []byte) bool {
	return Checksum(ph, segment) == 0
}

// onesSum adds b as big-endian 16-bit words without folding, padding an
// odd tail with a zero byte.
func onesSum(b []byte) uint32 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i:]))
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

// fold collapses the carries with end-around addition.
func fold(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return uint16(sum)
}
