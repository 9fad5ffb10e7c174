package audioio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidWAV is returned when a WAV payload cannot be decoded.
var ErrInvalidWAV = errors.New("audioio: invalid wav")

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// EncodeWAV wraps the buffer in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(b Buffer) []byte {
	data := b.Bytes()
	channels := b.Channels()
	if channels <= 0 {
		channels = 1
	}

	var out bytes.Buffer
	out.Grow(44 + len(data))

	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(36+len(data)))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(16))
	binary.Write(&out, binary.LittleEndian, wavFormat{
		AudioFormat:   1,
		Channels:      uint16(channels),
		SampleRate:    uint32(b.SampleRate()),
		ByteRate:      uint32(b.SampleRate() * channels * 2),
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
	})

	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(len(data)))
	out.Write(data)

	return out.Bytes()
}

// DecodeWAV parses a PCM16 WAV file. Unknown chunks are skipped.
// Streaming writers (say, espeak --stdout) leave the size fields at
// 0 or 0xFFFFFFFF, so a data chunk running past the end is truncated
// rather than rejected.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		format  *wavFormat
		payload []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(data) || end < body {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return Buffer{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			var f wavFormat
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &f); err != nil {
				return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
			format = &f
		case "data":
			payload = data[body:end]
		}

		if payload != nil && format != nil {
			break
		}
		// Chunks are word aligned.
		pos = end + (end-body)%2
	}

	if format == nil {
		return Buffer{}, fmt.Errorf("%w: no fmt chunk", ErrInvalidWAV)
	}
	if payload == nil {
		return Buffer{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
	}
	if format.AudioFormat != 1 && format.AudioFormat != 0xFFFE {
		return Buffer{}, fmt.Errorf("%w: unsupported encoding %d", ErrInvalidWAV, format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return Buffer{}, fmt.Errorf("%w: %d-bit samples not supported", ErrInvalidWAV, format.BitsPerSample)
	}
	if format.Channels == 0 || format.SampleRate == 0 {
		return Buffer{}, fmt.Errorf("%w: zero channels or sample rate", ErrInvalidWAV)
	}

	return adoptBuffer(BytesToSamples(payload), int(format.SampleRate), int(format.Channels)), nil
}
