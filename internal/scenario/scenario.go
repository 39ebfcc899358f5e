// Package scenario loads YAML descriptions of segments to craft.
package scenario

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tcpwire"
)

// Scenario is the top-level crafting configuration.
type Scenario struct {
	Network  Network   `yaml:"network"`
	Segments []Segment `yaml:"segments"`
}

// Network holds the addressing shared by every segment in the file.
type Network struct {
	SrcIP  string `yaml:"src_ip"`
	DstIP  string `yaml:"dst_ip"`
	SrcMAC string `yaml:"src_mac"` // optional, zero MAC when empty
	DstMAC string `yaml:"dst_mac"` // optional, broadcast when empty
}

// Segment describes one TCP segment to build.
type Segment struct {
	SrcPort    uint16   `yaml:"src_port"`
	DstPort    uint16   `yaml:"dst_port"`
	Seq        uint32   `yaml:"seq"`
	Ack        uint32   `yaml:"ack"`
	Flags      Flags    `yaml:"flags"`   // "syn,ack" or [syn, ack]
	Window     uint16   `yaml:"window"`
	Urgent     uint16   `yaml:"urgent"`
	Options    []Option `yaml:"options"`
	Payload    string   `yaml:"payload"`     // literal text
	PayloadHex string   `yaml:"payload_hex"` // takes precedence when set
}

// Option describes one TCP option. Kind is "eol", "nop", "mss", or a
// numeric kind for options the codec carries opaquely.
type Option struct {
	Kind string `yaml:"kind"`
	MSS  uint16 `yaml:"mss"`
	Data string `yaml:"data"` // hex payload for numeric kinds
}

// Flags wraps tcpwire.Flags for YAML unmarshalling from either a
// comma-separated string or a sequence of flag names.
type Flags struct {
	tcpwire.Flags
}

func (f *Flags) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		names = strings.Split(s, ",")
	case yaml.SequenceNode:
		if err := value.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("scenario: flags must be a string or a list")
	}
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case "cwr":
			f.CWR = true
		case "ece":
			f.ECE = true
		case "urg":
			f.URG = true
		case "ack":
			f.ACK = true
		case "psh":
			f.PSH = true
		case "rst":
			f.RST = true
		case "syn":
			f.SYN = true
		case "fin":
			f.FIN = true
		default:
			return fmt.Errorf("scenario: unknown flag %q", name)
		}
	}
	return nil
}

// PseudoHeader parses the scenario addresses.
func (n Network) PseudoHeader() (tcpwire.PseudoHeader, error) {
	src, err := netip.ParseAddr(n.SrcIP)
	if err != nil {
		return tcpwire.PseudoHeader{}, fmt.Errorf("scenario: src_ip: %w", err)
	}
	dst, err := netip.ParseAddr(n.DstIP)
	if err != nil {
		return tcpwire.PseudoHeader{}, fmt.Errorf("scenario: dst_ip: %w", err)
	}
	ph := tcpwire.PseudoHeader{Src: src, Dst: dst}
	if !ph.Valid() {
		return tcpwire.PseudoHeader{}, fmt.Errorf("scenario: src_ip and dst_ip must share an address family")
	}
	return ph, nil
}

// MACs parses the optional MAC addresses, defaulting to zero source and
// broadcast destination.
func (n Network) MACs() (src, dst net.HardwareAddr, err error) {
	src = net.HardwareAddr{0, 0, 0, 0, 0, 0}
	dst = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if n.SrcMAC != "" {
		if src, err = net.ParseMAC(n.SrcMAC); err != nil {
			return nil, nil, fmt.Errorf("scenario: src_mac: %w", err)
		}
	}
	if n.DstMAC != "" {
		if dst, err = net.ParseMAC(n.DstMAC); err != nil {
			return nil, nil, fmt.Errorf("scenario: dst_mac: %w", err)
		}
	}
	return src, dst, nil
}

// Header converts the segment description to codec fields.
func (s Segment) Header() tcpwire.Header {
	return tcpwire.Header{
		SrcPort: s.SrcPort,
		DstPort: s.DstPort,
		Seq:     s.Seq,
		Ack:     s.Ack,
		Flags:   s.Flags.Flags,
		Window:  s.Window,
		Urgent:  s.Urgent,
	}
}

// CodecOptions converts the option descriptions to codec options.
func (s Segment) CodecOptions() ([]tcpwire.Option, error) {
	var opts []tcpwire.Option
	for i, o := range s.Options {
		switch strings.ToLower(o.Kind) {
		case "eol", "end":
			opts = append(opts, tcpwire.Option{Kind: tcpwire.OptEndOfList})
		case "nop":
			opts = append(opts, tcpwire.Option{Kind: tcpwire.OptNOP})
		case "mss":
			opts = append(opts, tcpwire.Option{Kind: tcpwire.OptMSS, MSS: o.MSS})
		default:
			kind, err := strconv.ParseUint(o.Kind, 0, 8)
			if err != nil {
				return nil, fmt.Errorf("scenario: options[%d]: unknown kind %q", i, o.Kind)
			}
			data, err := hex.DecodeString(o.Data)
			if err != nil {
				return nil, fmt.Errorf("scenario: options[%d]: data: %w", i, err)
			}
			opts = append(opts, tcpwire.Option{Kind: tcpwire.OptionKind(kind), Data: data})
		}
	}
	return opts, nil
}

// PayloadBytes returns the segment payload, preferring payload_hex.
func (s Segment) PayloadBytes() ([]byte, error) {
	if s.PayloadHex != "" {
		b, err := hex.DecodeString(s.PayloadHex)
		if err != nil {
			return nil, fmt.Errorf("scenario: payload_hex: %w", err)
		}
		return b, nil
	}
	return []byte(s.Payload), nil
}

// Load reads a YAML scenario file from the specified path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Segments) == 0 {
		return nil, fmt.Errorf("scenario: %s: no segments", path)
	}
	return &sc, nil
}
