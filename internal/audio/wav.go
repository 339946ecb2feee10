package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const wavHeaderSize = 44

// wavWriter writes a 16-bit PCM WAV file incrementally. The header is
// written with zero sizes up front and patched on Close.
type wavWriter struct {
	f          *os.File
	sampleRate int
	channels   int
	dataBytes  int64
}

func newWAVWriter(f *os.File, sampleRate, channels int) (*wavWriter, error) {
	w := &wavWriter{f: f, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return w, nil
}

func (w *wavWriter) WriteSamples(samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	n, err := w.f.Write(buf)
	w.dataBytes += int64(n)
	return err
}

// Close patches the chunk sizes and closes the file.
func (w *wavWriter) Close() error {
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.writeHeader(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *wavWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * 2
	blockAlign := w.channels * 2

	var header [wavHeaderSize]byte
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+w.dataBytes))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(w.dataBytes))

	_, err := w.f.Write(header[:])
	return err
}
