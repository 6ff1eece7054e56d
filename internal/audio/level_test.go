package audio

import (
	"math"
	"testing"
)

func TestLevelMeter(t *testing.T) {
	var meter LevelMeter

	silence := make([]byte, 256)
	if got := meter.DBFS(silence); got != SilenceDBFS {
		t.Errorf("silence = %.2f, want %.0f", got, SilenceDBFS)
	}
	if got := meter.DBFS(nil); got != SilenceDBFS {
		t.Errorf("empty = %.2f, want %.0f", got, SilenceDBFS)
	}

	// Square wave at full negative/positive scale is ~0 dBFS.
	square := make([]int16, 128)
	for i := range square {
		if i%2 == 0 {
			square[i] = math.MaxInt16
		} else {
			square[i] = math.MinInt16
		}
	}
	frame := make([]byte, 256)
	PutInt16LE(frame, square)
	if got := meter.DBFS(frame); math.Abs(got) > 0.01 {
		t.Errorf("full-scale square = %.3f dBFS, want 0", got)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 12345, math.MaxInt16, math.MinInt16}
	buf := make([]byte, len(in)*2)
	PutInt16LE(buf, in)

	if buf[2] != 0x01 || buf[3] != 0x00 {
		t.Errorf("sample 1 encoded as % x, want 01 00", buf[2:4])
	}
	if buf[4] != 0xff || buf[5] != 0xff {
		t.Errorf("sample -1 encoded as % x, want ff ff", buf[4:6])
	}

	out := DecodeInt16LE(nil, buf)
	for i := range in {
		if out[i] != int(in[i]) {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}
