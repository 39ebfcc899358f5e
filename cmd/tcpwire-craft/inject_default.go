//go:build !linux || !cgo

package main

import "errors"

// injector is a stub on platforms without AF_PACKET.
type injector struct{}

func newInjector(string) (*injector, error) {
	return nil, errors.New("frame injection requires Linux (AF_PACKET)")
}

func (i *injector) Send([]byte) error { return nil }

func (i *injector) Close() {}
