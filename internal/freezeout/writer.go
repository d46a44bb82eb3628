package freezeout

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/relhydro/internal/hydro"
)

// FileName returns the surface file name for a threshold in GeV/fm³.
func FileName(epsFOGeV float64) string {
	return fmt.Sprintf("surface_eps_%.4f.dat", epsFOGeV)
}

// Writer appends little-endian float64 records of RecordLen fields.
type Writer struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	count int
}

// Create opens dir/FileName(epsFOGeV), truncating an existing file.
func Create(dir string, epsFOGeV float64) (*Writer, error) {
	path := filepath.Join(dir, FileName(epsFOGeV))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("freezeout: create surface file: %w", err)
	}
	return &Writer{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// NewWriter wraps an arbitrary stream. Close only flushes it.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Path() string { return w.path }

// Count returns the number of records written so far.
func (w *Writer) Count() int { return w.count }

func (w *Writer) Write(els []Element) error {
	for i := range els {
		r := els[i].record()
		if err := binary.Write(w.w, binary.LittleEndian, &r); err != nil {
			return fmt.Errorf("freezeout: write record %d: %w", w.count, err)
		}
		w.count++
	}
	return nil
}

// Close flushes buffered records and closes the underlying file.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// Reader decodes records written by Writer.
type Reader struct {
	r   *bufio.Reader
	buf [RecordLen * 8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next element or io.EOF after the last full record.
func (r *Reader) Next() (Element, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Element{}, ErrShortRecord
		}
		return Element{}, err
	}
	var rec [RecordLen]float64
	for i := range rec {
		rec[i] = math.Float64frombits(binary.LittleEndian.Uint64(r.buf[8*i:]))
	}
	return fromRecord(&rec), nil
}

// ReadAll loads every element of a surface file.
func ReadAll(path string) ([]Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("freezeout: open surface file: %w", err)
	}
	defer f.Close()

	var out []Element
	r := NewReader(f)
	for {
		el, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("freezeout: %s record %d: %w", filepath.Base(path), len(out), err)
		}
		out = append(out, el)
	}
}

// Summary aggregates a surface for reporting.
type Summary struct {
	Elements    int
	TauMin      float64
	TauMax      float64
	TotalVolume float64
	MeanT       float64
}

// Summarize returns element counts, the proper-time span, Σ|dΣ_μ u^μ| and
// the volume-weighted mean temperature in GeV.
func Summarize(els []Element) Summary {
	s := Summary{Elements: len(els), TauMin: math.Inf(1), TauMax: math.Inf(-1)}
	if len(els) == 0 {
		s.TauMin, s.TauMax = 0, 0
		return s
	}
	weighted := 0.0
	for i := range els {
		e := &els[i]
		s.TauMin = math.Min(s.TauMin, e.Tau)
		s.TauMax = math.Max(s.TauMax, e.Tau)
		v := math.Abs(e.DSigma[0]*e.U[0] + e.DSigma[1]*e.U[1] + e.DSigma[2]*e.U[2] + e.DSigma[3]*e.U[3])
		s.TotalVolume += v
		weighted += v * e.Temperature * hydro.HbarC
	}
	if s.TotalVolume > 0 {
		s.MeanT = weighted / s.TotalVolume
	}
	return s
}
