package pktline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeLen(t *testing.T) {
	cases := map[int]string{
		0:      "0000",
		1:      "0001",
		4:      "0004",
		20:     "0014",
		445:    "01bd",
		7236:   "1c44",
		0xffff: "ffff",
	}
	for n, want := range cases {
		assert.Equal(t, want, asciiHex16(n), "n=%d", n)
	}
}

func TestEncodeLenRoundTripsThroughHexDecode(t *testing.T) {
	for _, n := range []int{0, 4, 7, 1000, 2000, maxLine, 0xffff} {
		var b [lenSize]byte
		copy(b[:], asciiHex16(n))
		got, err := hexDecode(b)
		assert.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
