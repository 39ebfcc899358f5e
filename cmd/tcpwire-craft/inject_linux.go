//go:build linux && cgo

package main

import (
	"fmt"

	"github.com/google/gopacket/afpacket"
)

// injector writes raw frames through an AF_PACKET handle.
type injector struct {
	handle *afpacket.TPacket
}

func newInjector(iface string) (*injector, error) {
	handle, err := afpacket.NewTPacket(afpacket.OptInterface(iface))
	if err != nil {
		return nil, fmt.Errorf("failed to create AF_PACKET handle: %w", err)
	}
	return &injector{handle: handle}, nil
}

func (i *injector) Send(pkt []byte) error { return i.handle.WritePacketData(pkt) }

func (i *injector) Close() { i.handle.Close() }
