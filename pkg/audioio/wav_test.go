package audioio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestWAVRoundTrip(t *testing.T) {
	in := Tone(440, 50*time.Millisecond, 16000, 1, 0.3)

	data := EncodeWAV(in)
	if len(data) != 44+in.Len()*2 {
		t.Fatalf("encoded length = %d, want %d", len(data), 44+in.Len()*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:16]) != "WAVEfmt " || string(data[36:40]) != "data" {
		t.Fatalf("bad header: %q", data[:44])
	}

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if !out.Equal(in) {
		t.Error("decoded buffer differs from input")
	}
}

func TestDecodeWAV_SkipsUnknownChunks(t *testing.T) {
	in := NewBuffer([]int16{1, -1, 2, -2}, 22050, 2)
	enc := EncodeWAV(in)

	// Splice a LIST chunk with odd size (padded) between fmt and data.
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	data := append([]byte{}, enc[:36]...)
	data = append(data, list...)
	data = append(data, enc[36:]...)

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("got %v @ %d/%d", out.Samples(), out.SampleRate(), out.Channels())
	}
}

func TestDecodeWAV_StreamingSizes(t *testing.T) {
	in := NewBuffer([]int16{10, 20, 30}, 22050, 1)
	data := EncodeWAV(in)
	binary.LittleEndian.PutUint32(data[4:8], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(data[40:44], 0xFFFFFFFF)

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("got %v", out.Samples())
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	valid := EncodeWAV(NewBuffer([]int16{1, 2}, 16000, 1))

	eightBit := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	float := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(float[20:22], 3)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE")},
		{"no fmt", append([]byte("RIFF\x00\x00\x00\x00WAVE"), valid[36:]...)},
		{"no data", valid[:36]},
		{"8-bit", eightBit},
		{"float", float},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			if !errors.Is(err, ErrInvalidWAV) {
				t.Errorf("err = %v, want ErrInvalidWAV", err)
			}
		})
	}
}
