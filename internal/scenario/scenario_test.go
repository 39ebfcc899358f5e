package scenario

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"tcpwire"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeScenario(t, `
network:
  src_ip: 10.0.0.1
  dst_ip: 10.0.0.2
  src_mac: "00:11:22:33:44:55"
segments:
  - src_port: 12345
    dst_port: 80
    seq: 1000
    flags: syn
    window: 65535
    options:
      - kind: mss
        mss: 1460
  - src_port: 12345
    dst_port: 80
    seq: 1001
    ack: 501
    flags: [syn, ack]
    window: 64240
    payload_hex: "474554"
`)
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ph, err := sc.Network.PseudoHeader()
	if err != nil {
		t.Fatal(err)
	}
	if ph.Src.String() != "10.0.0.1" || ph.Dst.String() != "10.0.0.2" {
		t.Errorf("pseudo-header %v -> %v", ph.Src, ph.Dst)
	}

	srcMAC, dstMAC, err := sc.Network.MACs()
	if err != nil {
		t.Fatal(err)
	}
	if srcMAC.String() != "00:11:22:33:44:55" {
		t.Errorf("src MAC %s", srcMAC)
	}
	if dstMAC.String() != "ff:ff:ff:ff:ff:ff" {
		t.Errorf("dst MAC should default to broadcast, got %s", dstMAC)
	}

	if len(sc.Segments) != 2 {
		t.Fatalf("%d segments", len(sc.Segments))
	}

	first := sc.Segments[0].Header()
	if first.SrcPort != 12345 || first.DstPort != 80 || first.Seq != 1000 {
		t.Errorf("first header %+v", first)
	}
	if first.Flags != (tcpwire.Flags{SYN: true}) {
		t.Errorf("scalar flags %+v, want SYN", first.Flags)
	}

	opts, err := sc.Segments[0].CodecOptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 1 || opts[0].Kind != tcpwire.OptMSS || opts[0].MSS != 1460 {
		t.Errorf("options %+v", opts)
	}

	second := sc.Segments[1].Header()
	if second.Flags != (tcpwire.Flags{SYN: true, ACK: true}) {
		t.Errorf("sequence flags %+v, want SYN|ACK", second.Flags)
	}
	payload, err := sc.Segments[1].PayloadBytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte("GET")) {
		t.Errorf("payload % x", payload)
	}
}

func TestLoadBuildsVerifiableSegments(t *testing.T) {
	path := writeScenario(t, `
network:
  src_ip: 10.0.0.1
  dst_ip: 10.0.0.2
segments:
  - src_port: 1
    dst_port: 2
    flags: "syn"
    options:
      - kind: "254"
        data: "cafe"
`)
	sc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	ph, err := sc.Network.PseudoHeader()
	if err != nil {
		t.Fatal(err)
	}
	opts, err := sc.Segments[0].CodecOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts[0].Kind != 254 || !bytes.Equal(opts[0].Data, []byte{0xCA, 0xFE}) {
		t.Fatalf("numeric option %+v", opts[0])
	}

	seg, err := tcpwire.BuildSegment(ph, sc.Segments[0].Header(), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tcpwire.Verify(ph, seg) {
		t.Error("scenario segment fails verification")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no segments", "network:\n  src_ip: 10.0.0.1\n  dst_ip: 10.0.0.2\n"},
		{"bad yaml", "network: ["},
	}
	for _, tc := range tests {
		if _, err := Load(writeScenario(t, tc.body)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestUnknownFlag(t *testing.T) {
	path := writeScenario(t, `
network:
  src_ip: 10.0.0.1
  dst_ip: 10.0.0.2
segments:
  - src_port: 1
    dst_port: 2
    flags: warp
`)
	if _, err := Load(path); err == nil {
		t.Error("unknown flag name must be rejected")
	}
}

func TestMixedFamilies(t *testing.T) {
	path := writeScenario(t, `
network:
  src_ip: 10.0.0.1
  dst_ip: 2001:db8::1
segments:
  - src_port: 1
    dst_port: 2
`)
	sc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sc.Network.PseudoHeader(); err == nil {
		t.Error("mixed address families must be rejected")
	}
}
