package frame

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEtchBlock_FillsOnlyItsRegion(t *testing.T) {
	buf, err := New(3, 9, 9)
	require.NoError(t, err)

	c := ColorUnit(10, 20, 30)
	require.True(t, buf.EtchBlock(3, 3, c))

	img := buf.Image()
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			inside := x >= 3 && x < 6 && y >= 3 && y < 6
			if inside {
				assert.Equal(t, c, img.RGBAAt(x, y))
			} else {
				assert.Equal(t, color.RGBA{A: 0xFF}, img.RGBAAt(x, y))
			}
		}
	}
}

func TestReadBlock_Averages(t *testing.T) {
	buf, err := New(2, 2, 2)
	require.NoError(t, err)

	img := buf.Image()
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(0, 1, color.RGBA{R: 0, G: 8, A: 255})
	img.SetRGBA(1, 1, color.RGBA{R: 1, B: 4, A: 255})

	c, ok := buf.ReadBlock(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint8(127), c.R)
	assert.Equal(t, uint8(2), c.G)
	assert.Equal(t, uint8(1), c.B)
	assert.True(t, BitFromColor(c))
}

func TestOutOfBounds_NoValue(t *testing.T) {
	buf, err := New(4, 10, 10)
	require.NoError(t, err)

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"negative y", 0, -4},
		{"past usable width", 8, 0},
		{"past usable height", 0, 8},
		{"straddling edge", 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := buf.ReadBlock(tt.x, tt.y)
			assert.False(t, ok)
			assert.False(t, buf.EtchBlock(tt.x, tt.y, white))
		})
	}
}

func TestBitThreshold(t *testing.T) {
	assert.True(t, BitFromColor(color.RGBA{R: Threshold}))
	assert.False(t, BitFromColor(color.RGBA{R: Threshold - 1}))
	assert.True(t, BitFromColor(BitColor(true)))
	assert.False(t, BitFromColor(BitColor(false)))
}

func TestEtchBits_RoundTrip(t *testing.T) {
	buf, err := New(4, 16, 8)
	require.NoError(t, err)
	require.Equal(t, 8, buf.Capacity())

	in := []bool{true, false, true, true, false, false, true}
	n := buf.EtchBits(in)

	assert.Equal(t, len(in), n)
	got := buf.ReadBits()
	require.Len(t, got, 8)
	assert.Equal(t, in, got[:len(in)])
	assert.False(t, got[7], "unwritten block stays black")
}

func TestEtchBits_StopsAtCapacity(t *testing.T) {
	buf, err := New(4, 8, 8)
	require.NoError(t, err)

	in := make([]bool, 10)
	for i := range in {
		in[i] = true
	}

	assert.Equal(t, 4, buf.EtchBits(in))
	assert.Equal(t, []bool{true, true, true, true}, buf.ReadBits())
}

func TestEtchBytes_RoundTrip(t *testing.T) {
	buf, err := New(2, 8, 2)
	require.NoError(t, err)
	require.Equal(t, 12, buf.UnitCapacity(ModeColor))

	in := []byte("hello w")
	n := buf.EtchBytes(in)

	assert.Equal(t, len(in), n)
	got := buf.ReadBytes()
	require.Len(t, got, 12)
	assert.Equal(t, in, got[:len(in)])
	assert.Equal(t, []byte{0, 0}, got[7:9], "partial block is zero padded")
}

func TestEtchBytes_StopsAtCapacity(t *testing.T) {
	buf, err := New(1, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 6, buf.EtchBytes([]byte("abcdefgh")))
	assert.Equal(t, []byte("abcdef"), buf.ReadBytes())
}
