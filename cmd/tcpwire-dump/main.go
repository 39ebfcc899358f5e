// tcpwire-dump reads a pcap file and prints one line per TCP segment,
// with checksum verification against the pseudo-header derived from
// each frame's IP layer.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"tcpwire"
	"tcpwire/internal/frame"
	"tcpwire/internal/render"

	"github.com/google/gopacket/pcapgo"
)

func main() {
	inFile := flag.String("r", "", "Input pcap file (required)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	if *inFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*inFile)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *inFile, err)
	}
	defer f.Close()

	rd, err := pcapgo.NewReader(f)
	if err != nil {
		log.Fatalf("failed to read pcap header: %v", err)
	}

	r := render.Renderer{Color: !*noColor && isatty.IsTerminal(os.Stdout.Fd())}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var shown, skipped, bad int
	for {
		pkt, _, err := rd.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("pcap read: %v", err)
		}

		ph, segBytes, err := frame.Peel(pkt)
		if err != nil {
			skipped++
			continue
		}

		seg, err := tcpwire.ParseSegment(ph, segBytes)
		checksumOK := true
		switch {
		case errors.Is(err, tcpwire.ErrChecksumMismatch):
			checksumOK = false
			bad++
		case err != nil:
			skipped++
			fmt.Fprintf(out, "undecodable segment: %v\n", err)
			continue
		}

		fmt.Fprintln(out, r.Segment(ph, &seg, checksumOK))
		shown++
	}

	fmt.Fprintf(out, "%d segments (%d bad checksum), %d frames skipped\n", shown, bad, skipped)
}
