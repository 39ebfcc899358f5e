package tcpwire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func encodeOpts(t *testing.T, opts []Option) []byte {
	t.Helper()
	n, err := EncodedOptionsLen(opts)
	if err != nil {
		t.Fatalf("EncodedOptionsLen: %v", err)
	}
	dst := make([]byte, n)
	if _, err := EncodeOptions(dst, opts); err != nil {
		t.Fatalf("EncodeOptions: %v", err)
	}
	return dst
}

func TestEncodeOptionsWire(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []byte
	}{
		{"empty", nil, []byte{}},
		{"mss only, no padding needed", []Option{{Kind: OptMSS, MSS: 1460}},
			[]byte{0x02, 0x04, 0x05, 0xB4}},
		{"mss then eol pads to word", []Option{{Kind: OptMSS, MSS: 1460}, {Kind: OptEndOfList}},
			[]byte{0x02, 0x04, 0x05, 0xB4, 0x00, 0x00, 0x00, 0x00}},
		{"nop before mss", []Option{{Kind: OptNOP}, {Kind: OptMSS, MSS: 1460}},
			[]byte{0x01, 0x02, 0x04, 0x05, 0xB4, 0x00, 0x00, 0x00}},
		{"unknown kind verbatim", []Option{{Kind: 254, Data: []byte{0xAA, 0xBB}}},
			[]byte{0xFE, 0x04, 0xAA, 0xBB}},
		{"eol terminates encoding", []Option{{Kind: OptEndOfList}, {Kind: OptMSS, MSS: 9000}},
			[]byte{0x00, 0x00, 0x00, 0x00}},
	}
	for _, tc := range tests {
		if got := encodeOpts(t, tc.opts); !bytes.Equal(got, tc.want) {
			t.Errorf("%s: got % x, want % x", tc.name, got, tc.want)
		}
	}
}

func TestEncodedOptionsLenErrors(t *testing.T) {
	huge := Option{Kind: 253, Data: make([]byte, 254)}
	if _, err := EncodedOptionsLen([]Option{huge}); !errors.Is(err, ErrOptionTooLong) {
		t.Errorf("254-byte payload: got %v, want ErrOptionTooLong", err)
	}

	var eleven []Option
	for i := 0; i < 11; i++ {
		eleven = append(eleven, Option{Kind: OptMSS, MSS: 1460})
	}
	if _, err := EncodedOptionsLen(eleven); !errors.Is(err, ErrOptionsTooLong) {
		t.Errorf("44 bytes of options: got %v, want ErrOptionsTooLong", err)
	}

	// 10 MSS options are exactly the 40-byte maximum.
	if n, err := EncodedOptionsLen(eleven[:10]); err != nil || n != MaxOptionsLen {
		t.Errorf("40 bytes of options: n=%d err=%v", n, err)
	}
}

func TestEncodeOptionsShortBuffer(t *testing.T) {
	dst := make([]byte, 3)
	if _, err := EncodeOptions(dst, []Option{{Kind: OptMSS, MSS: 1460}}); !errors.Is(err, ErrTooShort) {
		t.Errorf("got %v, want ErrTooShort", err)
	}
}

func TestOptionIterSequence(t *testing.T) {
	region := []byte{
		0x01,                   // NOP
		0x02, 0x04, 0x05, 0xB4, // MSS=1460
		0x03, 0x03, 0x07, // Window Scale 7, unrecognized, passed through
		0x00, // EOL
		0xDE, 0xAD, 0xBE, // junk after EOL must not be touched
	}
	it := Options(region)

	want := []Option{
		{Kind: OptNOP},
		{Kind: OptMSS, MSS: 1460},
		{Kind: 3, Data: []byte{0x07}},
		{Kind: OptEndOfList},
	}
	for i, w := range want {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("option %d: iterator ended early (err=%v)", i, it.Err())
		}
		if got.Kind != w.Kind || got.MSS != w.MSS || !bytes.Equal(got.Data, w.Data) {
			t.Errorf("option %d: got %+v, want %+v", i, got, w)
		}
	}
	if _, ok := it.Next(); ok {
		t.Error("iterator should stop after EOL")
	}
	if it.Err() != nil {
		t.Errorf("unexpected error: %v", it.Err())
	}
}

func TestOptionIterRestartable(t *testing.T) {
	region := []byte{0x02, 0x04, 0x05, 0xB4}
	it := Options(region)

	first, _ := collect(&it)
	it.Reset()
	second, _ := collect(&it)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("restarted iteration differs: %v vs %v", first, second)
	}
}

func collect(it *OptionIter) ([]Option, error) {
	var opts []Option
	for {
		o, ok := it.Next()
		if !ok {
			return opts, it.Err()
		}
		opts = append(opts, o)
	}
}

func TestOptionIterMalformed(t *testing.T) {
	tests := []struct {
		name   string
		region []byte
	}{
		{"length below 2", []byte{0x02, 0x01, 0x05, 0xB4}},
		{"length past region end", []byte{0xFE, 0x08, 0x01}},
		{"kind with no length byte", []byte{0x03}},
	}
	for _, tc := range tests {
		_, err := ParseOptions(tc.region)
		if !errors.Is(err, ErrMalformedOption) {
			t.Errorf("%s: got %v, want ErrMalformedOption", tc.name, err)
		}
	}
}

// Kind 2 at any length other than 4 is not an MSS; it passes through
// opaquely so future reinterpretations of the kind survive a transit.
func TestOptionIterMSSWrongLength(t *testing.T) {
	opts, err := ParseOptions([]byte{0x02, 0x03, 0x05, 0x01, 0x04, 0x02, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if opts[0].Kind != OptMSS || opts[0].MSS != 0 || !bytes.Equal(opts[0].Data, []byte{0x05}) {
		t.Errorf("kind-2 length-3 option should pass through raw, got %+v", opts[0])
	}
}

func TestOptionsRoundTripAligned(t *testing.T) {
	tests := [][]Option{
		nil,
		{{Kind: OptMSS, MSS: 1460}},
		{{Kind: OptMSS, MSS: 1460}, {Kind: OptEndOfList}},
		{{Kind: OptNOP}, {Kind: OptNOP}, {Kind: OptMSS, MSS: 536}, {Kind: OptNOP}, {Kind: OptNOP}},
		{{Kind: 254, Data: []byte{0x01, 0x02}}},
		{{Kind: OptMSS, MSS: 1}, {Kind: OptMSS, MSS: 2}, {Kind: OptMSS, MSS: 3}},
	}
	for i, opts := range tests {
		wire := encodeOpts(t, opts)
		got, err := ParseOptions(wire)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if len(got) != len(opts) {
			t.Fatalf("case %d: got %d options, want %d (%v)", i, len(got), len(opts), got)
		}
		for j := range opts {
			if got[j].Kind != opts[j].Kind || got[j].MSS != opts[j].MSS || !bytes.Equal(got[j].Data, opts[j].Data) {
				t.Errorf("case %d option %d: got %+v, want %+v", i, j, got[j], opts[j])
			}
		}
	}
}

// An unaligned sequence gains its padding back as a trailing EOL on
// decode; everything before it is preserved in order.
func TestOptionsRoundTripPaddingNormalized(t *testing.T) {
	opts := []Option{{Kind: OptNOP}}
	wire := encodeOpts(t, opts)
	if !bytes.Equal(wire, []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("unexpected wire form % x", wire)
	}
	got, err := ParseOptions(wire)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != OptNOP || got[1].Kind != OptEndOfList {
		t.Errorf("got %v, want [NOP EOL]", got)
	}
}
