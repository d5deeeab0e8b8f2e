package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
	"github.com/minimaxir/miditui/pkg/transport"
)

const (
	bitsPerSample = 16
	numChannels   = 2
	wavHeaderSize = 44
)

// EncodeWAV drives the transport scheduler in Rendering mode through
// eng and writes canonical RIFF/WAVE PCM-16 stereo 44100 Hz output.
// eng must already have a SoundFont loaded; its absence is a hard
// error per spec §4.6. duration, if zero, renders until the project's
// last scheduled note-off plus the transport's decay tail.
func EncodeWAV(p *project.Project, eng *synth.Synth, duration time.Duration, w io.Writer) error {
	left, right, err := transport.RenderToPCM(p, eng, transport.RenderOptions{Duration: duration})
	if err != nil {
		return err
	}
	return writeWAV(w, left, right)
}

// EncodeWAVFile is a convenience wrapper for writing to a path.
func EncodeWAVFile(p *project.Project, eng *synth.Synth, duration time.Duration, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create %s: %w", path, err)
	}
	defer f.Close()
	return EncodeWAV(p, eng, duration, f)
}

func writeWAV(w io.Writer, left, right []float32) error {
	frames := len(left)
	dataSize := uint32(frames * numChannels * (bitsPerSample / 8))
	byteRate := uint32(synth.SampleRate * numChannels * (bitsPerSample / 8))
	blockAlign := uint16(numChannels * (bitsPerSample / 8))

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], synth.SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return err
	}

	buf := make([]byte, frames*numChannels*2)
	for i := 0; i < frames; i++ {
		l := int16(clampSampleWAV(left[i]) * 32767)
		r := int16(clampSampleWAV(right[i]) * 32767)
		binary.LittleEndian.PutUint16(buf[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(buf[i*4+2:], uint16(r))
	}
	_, err := w.Write(buf)
	return err
}

func clampSampleWAV(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
