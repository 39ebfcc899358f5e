// Package frame wraps TCP segments into Ethernet/IP frames and peels
// captured frames back down to the segment plus its pseudo-header. It
// exists for the pcap tooling; the public codec surface stays at the
// transport layer.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"

	"tcpwire"
)

const (
	EthLen  = 14
	IPv4Len = 20 // no IP options
	IPv6Len = 40 // fixed header only

	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD

	ipProtoTCP = 6
)

var (
	ErrTruncated = errors.New("frame: truncated")
	ErrNotTCP    = errors.New("frame: not a TCP frame")
)

// AppendEthernet appends a 14-byte Ethernet header.
func AppendEthernet(dst []byte, srcMAC, dstMAC net.HardwareAddr, etherType uint16) []byte {
	var hdr [EthLen]byte
	copy(hdr[0:6], dstMAC)
	copy(hdr[6:12], srcMAC)
	binary.BigEndian.PutUint16(hdr[12:14], etherType)
	return append(dst, hdr[:]...)
}

// AppendIPv4 appends a 20-byte IPv4 header carrying a TCP payload of
// payloadLen bytes. DF is set and TTL is 64; the header checksum is
// computed here (RFC 1071).
func AppendIPv4(dst []byte, src, dstAddr netip.Addr, id uint16, payloadLen int) []byte {
	var hdr [IPv4Len]byte
	hdr[0] = 0x45 // Version=4, IHL=5
	binary.BigEndian.PutUint16(hdr[2:], uint16(IPv4Len+payloadLen))
	binary.BigEndian.PutUint16(hdr[4:], id)
	hdr[6] = 0x40 // Don't Fragment
	hdr[8] = 64   // TTL
	hdr[9] = ipProtoTCP
	s4, d4 := src.Unmap().As4(), dstAddr.Unmap().As4()
	copy(hdr[12:16], s4[:])
	copy(hdr[16:20], d4[:])
	binary.BigEndian.PutUint16(hdr[10:], ipv4Checksum(hdr[:]))
	return append(dst, hdr[:]...)
}

// AppendIPv6 appends a 40-byte IPv6 fixed header with next-header TCP.
func AppendIPv6(dst []byte, src, dstAddr netip.Addr, payloadLen int) []byte {
	var hdr [IPv6Len]byte
	hdr[0] = 0x60 // Version=6
	binary.BigEndian.PutUint16(hdr[4:], uint16(payloadLen))
	hdr[6] = ipProtoTCP
	hdr[7] = 64 // hop limit
	s16, d16 := src.As16(), dstAddr.As16()
	copy(hdr[8:24], s16[:])
	copy(hdr[24:40], d16[:])
	return append(dst, hdr[:]...)
}

// WrapTCP appends a full Ethernet+IP frame around an assembled TCP
// segment, choosing IPv4 or IPv6 framing from the pseudo-header family.
func WrapTCP(dst []byte, srcMAC, dstMAC net.HardwareAddr, ph tcpwire.PseudoHeader, id uint16, segment []byte) ([]byte, error) {
	if !ph.Valid() {
		return dst, fmt.Errorf("frame: %v -> %v: mixed or missing address family", ph.Src, ph.Dst)
	}
	if ph.Src.Unmap().Is4() {
		dst = slices.Grow(dst, EthLen+IPv4Len+len(segment))
		dst = AppendEthernet(dst, srcMAC, dstMAC, etherTypeIPv4)
		dst = AppendIPv4(dst, ph.Src, ph.Dst, id, len(segment))
	} else {
		dst = slices.Grow(dst, EthLen+IPv6Len+len(segment))
		dst = AppendEthernet(dst, srcMAC, dstMAC, etherTypeIPv6)
		dst = AppendIPv6(dst, ph.Src, ph.Dst, len(segment))
	}
	return append(dst, segment...), nil
}

// Peel locates the TCP segment inside an Ethernet frame and derives its
// pseudo-header. IPv4 options are skipped via IHL; IPv6 extension
// headers are not walked; a frame whose next-header is not TCP is
// ErrNotTCP. Trailing Ethernet padding is trimmed using the IP length
// fields. The returned segment aliases pkt.
func Peel(pkt []byte) (tcpwire.PseudoHeader, []byte, error) {
	if len(pkt) < EthLen {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(pkt))
	}
	switch binary.BigEndian.Uint16(pkt[12:14]) {
	case etherTypeIPv4:
		return peelIPv4(pkt[EthLen:])
	case etherTypeIPv6:
		return peelIPv6(pkt[EthLen:])
	default:
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: ethertype 0x%04x", ErrNotTCP, binary.BigEndian.Uint16(pkt[12:14]))
	}
}

func peelIPv4(ip []byte) (tcpwire.PseudoHeader, []byte, error) {
	if len(ip) < IPv4Len {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: IPv4 header", ErrTruncated)
	}
	if ip[0]>>4 != 4 {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: version %d in IPv4 frame", ErrNotTCP, ip[0]>>4)
	}
	ihl := int(ip[0]&0x0f) * 4
	total := int(binary.BigEndian.Uint16(ip[2:]))
	if ihl < IPv4Len || total < ihl {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: IHL %d, total length %d", ErrTruncated, ihl, total)
	}
	if total > len(ip) {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: total length %d, %d bytes captured", ErrTruncated, total, len(ip))
	}
	if ip[9] != ipProtoTCP {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: protocol %d", ErrNotTCP, ip[9])
	}
	ph := tcpwire.PseudoHeader{
		Src: netip.AddrFrom4([4]byte(ip[12:16])),
		Dst: netip.AddrFrom4([4]byte(ip[16:20])),
	}
	return ph, ip[ihl:total], nil
}

func peelIPv6(ip []byte) (tcpwire.PseudoHeader, []byte, error) {
	if len(ip) < IPv6Len {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: IPv6 header", ErrTruncated)
	}
	if ip[6] != ipProtoTCP {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: next header %d", ErrNotTCP, ip[6])
	}
	payloadLen := int(binary.BigEndian.Uint16(ip[4:]))
	if IPv6Len+payloadLen > len(ip) {
		return tcpwire.PseudoHeader{}, nil, fmt.Errorf("%w: payload length %d, %d bytes captured", ErrTruncated, payloadLen, len(ip)-IPv6Len)
	}
	ph := tcpwire.PseudoHeader{
		Src: netip.AddrFrom16([16]byte(ip[8:24])),
		Dst: netip.AddrFrom16([16]byte(ip[24:40])),
	}
	return ph, ip[IPv6Len : IPv6Len+payloadLen], nil
}

// ipv4Checksum computes the IPv4 header checksum per RFC 1071.
func ipv4Checksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i < len(hdr)-1; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(hdr[i:]))
	}
	if len(hdr)%2 == 1 {
		sum += uint32(hdr[len(hdr)-1]) << 8
	}
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}
