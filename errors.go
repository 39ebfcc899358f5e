package tcpwire

import "errors"

// Every failure mode the codec can report. Callers match with errors.Is;
// retry and drop policy belong to the transport layer above.
var (
	// ErrTooShort means the buffer cannot hold the minimum 20-byte header,
	// or is shorter than its own declared data offset.
	ErrTooShort = errors.New("tcpwire: segment too short")

	// ErrInvalidDataOffset means the data offset is below 5 words, or the
	// options length is inconsistent with a 4-byte-aligned header.
	ErrInvalidDataOffset = errors.New("tcpwire: invalid data offset")

	// ErrOptionsTooLong means the options region would exceed the 40 bytes
	// reachable with a 15-word data offset.
	ErrOptionsTooLong = errors.New("tcpwire: options exceed 40 bytes")

	// ErrOptionTooLong means a single option cannot fit its 8-bit length field.
	ErrOptionTooLong = errors.New("tcpwire: option exceeds 255 bytes")

	// ErrMalformedOption means an option declares a length below 2 or past
	// the end of the options region.
	ErrMalformedOption = errors.New("tcpwire: malformed option")

	// ErrChecksumMismatch means the segment did not sum to zero under its
	// pseudo-header.
	ErrChecksumMismatch = errors.New("tcpwire: checksum mismatch")

	// ErrPseudoHeader means the pseudo-header addresses are missing or of
	// mixed address families.
	ErrPseudoHeader = errors.New("tcpwire: invalid pseudo-header")
)
