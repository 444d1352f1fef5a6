// Package frame streams driver observations to external renderers as
// length-prefixed msgpack messages: a 4-byte big-endian body length followed
// by the msgpack body.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ardalan-sia/signal-timing/pkg/simulation"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// MaxFrameSize bounds a single body. Larger headers are treated as corrupt.
const MaxFrameSize = 1 << 20

// Approach is the wire form of simulation.Approach.
type Approach struct {
	Direction string `msgpack:"dir" json:"dir"`
	Queue     int    `msgpack:"queue" json:"queue"`
	Green     bool   `msgpack:"green" json:"green"`
}

// Plan is the wire form of simulation.PlanObservation.
type Plan struct {
	Name       string     `msgpack:"name" json:"name"`
	Phase      int        `msgpack:"phase" json:"phase"`
	Approaches []Approach `msgpack:"approaches" json:"approaches"`
}

// Frame is one tick of one run.
type Frame struct {
	RunID string `msgpack:"run" json:"run"`
	Tick  int    `msgpack:"tick" json:"tick"`
	Plans []Plan `msgpack:"plans" json:"plans"`
}

// FromObservation converts obs to its wire form.
func FromObservation(obs simulation.Observation) Frame {
	f := Frame{RunID: obs.RunID.String(), Tick: obs.Tick, Plans: make([]Plan, len(obs.Plans))}
	for i, p := range obs.Plans {
		wp := Plan{Name: p.Name, Phase: p.Phase, Approaches: make([]Approach, len(p.Approaches))}
		for j, a := range p.Approaches {
			wp.Approaches[j] = Approach{Direction: a.Direction.String(), Queue: a.Queue, Green: a.Green}
		}
		f.Plans[i] = wp
	}
	return f
}

// Observation converts f back, rejecting unknown run IDs and directions.
func (f Frame) Observation() (simulation.Observation, error) {
	id, err := uuid.Parse(f.RunID)
	if err != nil {
		return simulation.Observation{}, fmt.Errorf("frame run id: %w", err)
	}
	obs := simulation.Observation{RunID: id, Tick: f.Tick, Plans: make([]simulation.PlanObservation, len(f.Plans))}
	for i, p := range f.Plans {
		po := simulation.PlanObservation{Name: p.Name, Phase: p.Phase, Approaches: make([]simulation.Approach, len(p.Approaches))}
		for j, a := range p.Approaches {
			d, err := traffic.ParseDirection(a.Direction)
			if err != nil {
				return simulation.Observation{}, fmt.Errorf("frame tick %d plan %s: %w", f.Tick, p.Name, err)
			}
			po.Approaches[j] = simulation.Approach{Direction: d, Queue: a.Queue, Green: a.Green}
		}
		obs.Plans[i] = po
	}
	return obs, nil
}

// Encoder writes frames to an io.Writer. It is safe for concurrent use, so
// replications can share one output stream.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one observation. Its signature matches Driver.Run's sink.
func (e *Encoder) Encode(obs simulation.Observation) error {
	return e.WriteFrame(FromObservation(obs))
}

// WriteFrame writes one frame.
func (e *Encoder) WriteFrame(f Frame) error {
	body, err := msgpack.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("encode frame: %d bytes exceeds limit %d", len(body), MaxFrameSize)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = e.w.Write(body)
	return err
}

// Decoder reads frames from an io.Reader.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadFrame reads one frame. It returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when a frame is cut short.
func (d *Decoder) ReadFrame() (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > MaxFrameSize {
		return Frame{}, fmt.Errorf("decode frame: length %d exceeds limit %d", length, MaxFrameSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	var f Frame
	if err := msgpack.Unmarshal(buf, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Decode reads one frame and converts it to an observation.
func (d *Decoder) Decode() (simulation.Observation, error) {
	f, err := d.ReadFrame()
	if err != nil {
		return simulation.Observation{}, err
	}
	return f.Observation()
}
