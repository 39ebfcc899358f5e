// tcpwire-craft builds TCP segments from a YAML scenario and writes
// them to a pcap file, optionally injecting them on a Linux interface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"tcpwire"
	"tcpwire/internal/frame"
	"tcpwire/internal/scenario"
)

func main() {
	configPath := flag.String("c", "", "Scenario YAML file (required)")
	outFile := flag.String("o", "segments.pcap", "Output pcap file")
	iface := flag.String("iface", "", "Inject frames on this interface (Linux only)")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	sc, err := scenario.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load scenario: %v", err)
	}
	ph, err := sc.Network.PseudoHeader()
	if err != nil {
		log.Fatal(err)
	}
	srcMAC, dstMAC, err := sc.Network.MACs()
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *outFile, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("failed to write pcap header: %v", err)
	}

	var inj *injector
	if *iface != "" {
		if inj, err = newInjector(*iface); err != nil {
			log.Fatalf("failed to open %s: %v", *iface, err)
		}
		defer inj.Close()
	}

	for i, sd := range sc.Segments {
		opts, err := sd.CodecOptions()
		if err != nil {
			log.Fatalf("segment %d: %v", i, err)
		}
		payload, err := sd.PayloadBytes()
		if err != nil {
			log.Fatalf("segment %d: %v", i, err)
		}
		seg, err := tcpwire.BuildSegment(ph, sd.Header(), opts, payload)
		if err != nil {
			log.Fatalf("segment %d: %v", i, err)
		}
		pkt, err := frame.WrapTCP(nil, srcMAC, dstMAC, ph, uint16(i+1), seg)
		if err != nil {
			log.Fatalf("segment %d: %v", i, err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(pkt),
			Length:        len(pkt),
		}
		if err := w.WritePacket(ci, pkt); err != nil {
			log.Fatalf("segment %d: pcap write: %v", i, err)
		}
		if inj != nil {
			if err := inj.Send(pkt); err != nil {
				log.Fatalf("segment %d: inject: %v", i, err)
			}
		}
	}

	fmt.Printf("wrote %d segments to %s\n", len(sc.Segments), *outFile)
	if inj != nil {
		fmt.Printf("injected %d frames on %s\n", len(sc.Segments), *iface)
	}
}
