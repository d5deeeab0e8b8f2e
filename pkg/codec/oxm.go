package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/minimaxir/miditui/pkg/project"
)

// oxmMagic is the fixed 4-byte header every .oxm file begins with:
// "OXM" followed by the format version (spec §4.6, §6).
var oxmMagic = [4]byte{'O', 'X', 'M', oxmVersion}

const oxmVersion = 1

// EncodeOXM writes the complete project, including editor state, to
// w in the compact binary format that doubles as the autosave format.
// Counts, string lengths, tick positions, durations, and the integer
// editor-state fields use varint encoding; floats are fixed-width
// little-endian and 8-bit fields are single bytes.
func EncodeOXM(p *project.Project, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(oxmMagic[:]); err != nil {
		return err
	}

	putFloat64(bw, p.Tempo)
	bw.WriteByte(p.TimeSignature.Numerator)
	bw.WriteByte(p.TimeSignature.Denominator)
	putString(bw, p.SoundFontPath)

	putVarint(bw, int64(len(p.Tracks)))
	for _, tr := range p.Tracks {
		putString(bw, tr.Name)
		bw.WriteByte(tr.Instrument.Bank)
		bw.WriteByte(tr.Instrument.Program)
		bw.WriteByte(tr.Channel)
		putBool(bw, tr.Mute)
		putBool(bw, tr.Solo)
		putFloat64(bw, tr.Volume)
		putFloat64(bw, tr.Pan)
		putBool(bw, tr.Drum)

		notes := tr.Notes()
		putVarint(bw, int64(len(notes)))
		for _, n := range notes {
			bw.WriteByte(n.Pitch)
			putVarint(bw, n.Start)
			putVarint(bw, n.Duration)
			bw.WriteByte(n.Velocity)
		}
	}

	putEditorState(bw, p.Editor)

	return bw.Flush()
}

// EncodeOXMFile is a convenience wrapper for writing directly to a
// path on disk (non-atomic; autosave uses its own atomic wrapper in
// pkg/autosave).
func EncodeOXMFile(p *project.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create %s: %w", path, err)
	}
	defer f.Close()
	return EncodeOXM(p, f)
}

func putEditorState(w *bufio.Writer, e project.EditorState) {
	putVarint(w, int64(e.Mode))
	putVarint(w, int64(e.Selection.Track))
	putVarint(w, e.Selection.StartTick)
	putVarint(w, e.Selection.EndTick)
	putBool(w, e.Selection.HasPitches)
	w.WriteByte(e.Selection.LowPitch)
	w.WriteByte(e.Selection.HighPitch)
	putVarint(w, int64(e.CurrentOctave))
	putVarint(w, e.CursorTick)
	putVarint(w, e.InsertAnchor)
	putBool(w, e.InsertAnchorOn)
}

func getEditorState(r *countingReader) (project.EditorState, error) {
	var e project.EditorState
	mode, err := getVarint(r)
	if err != nil {
		return e, err
	}
	e.Mode = project.ViewMode(mode)
	if e.Selection.Track, err = getVarintInt(r); err != nil {
		return e, err
	}
	if e.Selection.StartTick, err = getVarint(r); err != nil {
		return e, err
	}
	if e.Selection.EndTick, err = getVarint(r); err != nil {
		return e, err
	}
	if e.Selection.HasPitches, err = getBool(r); err != nil {
		return e, err
	}
	if e.Selection.LowPitch, err = r.readByte(); err != nil {
		return e, err
	}
	if e.Selection.HighPitch, err = r.readByte(); err != nil {
		return e, err
	}
	if e.CurrentOctave, err = getVarintInt(r); err != nil {
		return e, err
	}
	if e.CursorTick, err = getVarint(r); err != nil {
		return e, err
	}
	if e.InsertAnchor, err = getVarint(r); err != nil {
		return e, err
	}
	if e.InsertAnchorOn, err = getBool(r); err != nil {
		return e, err
	}
	return e, nil
}

// DecodeOXM parses the binary format produced by EncodeOXM. Lower
// version numbers than oxmVersion are accepted for backward
// compatibility (spec §6); higher versions are rejected cleanly.
func DecodeOXM(r io.Reader) (*project.Project, error) {
	cr := &countingReader{r: bufio.NewReader(r)}

	var magic [4]byte
	if _, err := io.ReadFull(cr.r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if magic[0] != 'O' || magic[1] != 'X' || magic[2] != 'M' {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	if magic[3] > oxmVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, magic[3])
	}

	p := &project.Project{}
	var err error
	if p.Tempo, err = getFloat64(cr); err != nil {
		return nil, err
	}
	if p.TimeSignature.Numerator, err = cr.readByte(); err != nil {
		return nil, err
	}
	if p.TimeSignature.Denominator, err = cr.readByte(); err != nil {
		return nil, err
	}
	if p.SoundFontPath, err = getString(cr); err != nil {
		return nil, err
	}

	trackCount, err := getVarintInt(cr)
	if err != nil {
		return nil, err
	}
	for i := 0; i < trackCount; i++ {
		name, err := getString(cr)
		if err != nil {
			return nil, err
		}
		bank, err := cr.readByte()
		if err != nil {
			return nil, err
		}
		program, err := cr.readByte()
		if err != nil {
			return nil, err
		}
		channel, err := cr.readByte()
		if err != nil {
			return nil, err
		}
		mute, err := getBool(cr)
		if err != nil {
			return nil, err
		}
		solo, err := getBool(cr)
		if err != nil {
			return nil, err
		}
		volume, err := getFloat64(cr)
		if err != nil {
			return nil, err
		}
		pan, err := getFloat64(cr)
		if err != nil {
			return nil, err
		}
		drum, err := getBool(cr)
		if err != nil {
			return nil, err
		}

		tr := project.NewTrack(name, channel)
		tr.Instrument = project.Instrument{Bank: bank, Program: program}
		tr.Mute = mute
		tr.Solo = solo
		tr.SetVolume(volume)
		tr.SetPan(pan)
		tr.Drum = drum

		noteCount, err := getVarintInt(cr)
		if err != nil {
			return nil, err
		}
		for j := 0; j < noteCount; j++ {
			pitch, err := cr.readByte()
			if err != nil {
				return nil, err
			}
			start, err := getVarint(cr)
			if err != nil {
				return nil, err
			}
			duration, err := getVarint(cr)
			if err != nil {
				return nil, err
			}
			velocity, err := cr.readByte()
			if err != nil {
				return nil, err
			}
			if err := tr.AddNote(project.Note{Pitch: pitch, Start: start, Duration: duration, Velocity: velocity}); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		p.Tracks = append(p.Tracks, tr)
	}

	if p.Editor, err = getEditorState(cr); err != nil {
		return nil, err
	}

	return p, nil
}

// DecodeOXMFile is a convenience wrapper for reading directly from a
// path on disk.
func DecodeOXMFile(path string) (*project.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeOXM(f)
}

// --- low-level encoding helpers ---

type countingReader struct {
	r *bufio.Reader
}

func (c *countingReader) readByte() (uint8, error) {
	return c.r.ReadByte()
}

func putVarint(w *bufio.Writer, v int64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], v)
	w.Write(buf[:n])
}

func getVarint(r *countingReader) (int64, error) {
	return binary.ReadVarint(r.r)
}

func getVarintInt(r *countingReader) (int, error) {
	v, err := getVarint(r)
	return int(v), err
}

func putFloat64(w *bufio.Writer, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Write(buf[:])
}

func getFloat64(r *countingReader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func putBool(w *bufio.Writer, b bool) {
	if b {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func getBool(r *countingReader) (bool, error) {
	b, err := r.readByte()
	return b != 0, err
}

func putString(w *bufio.Writer, s string) {
	putVarint(w, int64(len(s)))
	w.WriteString(s)
}

func getString(r *countingReader) (string, error) {
	n, err := getVarintInt(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
