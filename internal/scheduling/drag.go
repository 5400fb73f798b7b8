package scheduling

import (
	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
)

// DragState is the phase of a reposition gesture
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Event is a pointer input fed to Drag.Dispatch
type Event interface {
	isDragEvent()
}

// PointerDown presses on a block whose current start is Start
type PointerDown struct {
	TaskID uuid.UUID
	Start  models.ClockTime
	Fixed  bool
	Y      Pixels
}

// PointerMove reports the pointer's current vertical position
type PointerMove struct {
	Y Pixels
}

// PointerUp releases the pointer
type PointerUp struct{}

// PointerLeave reports the pointer leaving the timeline without a release.
// It abandons the gesture without committing.
type PointerLeave struct{}

func (PointerDown) isDragEvent()  {}
func (PointerMove) isDragEvent()  {}
func (PointerUp) isDragEvent()    {}
func (PointerLeave) isDragEvent() {}

// EffectKind tells the caller what a transition produced
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectStarted
	EffectPropose
	EffectCommit
	EffectCancel
)

// Effect is the observable outcome of a transition. Start carries the
// proposed or committed start for EffectStarted, EffectPropose and
// EffectCommit.
type Effect struct {
	Kind   EffectKind
	TaskID uuid.UUID
	Start  models.ClockTime
}

// Drag tracks a single-pointer reposition of one block. It is a value:
// Dispatch returns the next state and leaves the receiver untouched.
type Drag struct {
	state           DragState
	taskID          uuid.UUID
	originalStart   models.ClockTime
	originPointer   Pixels
	proposed        models.ClockTime
	pixelsPerMinute float64
}

// NewDrag returns an idle machine for a timeline drawn at pixelsPerMinute
func NewDrag(pixelsPerMinute float64) Drag {
	if pixelsPerMinute <= 0 {
		pixelsPerMinute = DefaultPixelsPerMinute
	}
	return Drag{pixelsPerMinute: pixelsPerMinute}
}

func (d Drag) State() DragState { return d.state }
func (d Drag) TaskID() uuid.UUID { return d.taskID }
func (d Drag) OriginalStart() models.ClockTime { return d.originalStart }
func (d Drag) Proposed() models.ClockTime { return d.proposed }

// Dispatch applies ev and returns the next machine and its effect
func (d Drag) Dispatch(ev Event) (Drag, Effect) {
	switch e := ev.(type) {
	case PointerDown:
		if d.state == Dragging || e.Fixed {
			return d, Effect{}
		}
		next := Drag{
			state:           Dragging,
			taskID:          e.TaskID,
			originalStart:   e.Start,
			originPointer:   e.Y,
			proposed:        e.Start,
			pixelsPerMinute: d.pixelsPerMinute,
		}
		return next, Effect{Kind: EffectStarted, TaskID: e.TaskID, Start: e.Start}

	case PointerMove:
		if d.state != Dragging {
			return d, Effect{}
		}
		delta := PixelsToMinutes(e.Y-d.originPointer, d.pixelsPerMinute)
		proposed := d.originalStart.Add(delta).Clamp(models.MinClock, models.MaxClock)
		if proposed == d.proposed {
			return d, Effect{}
		}
		d.proposed = proposed
		return d, Effect{Kind: EffectPropose, TaskID: d.taskID, Start: proposed}

	case PointerUp:
		if d.state != Dragging {
			return d, Effect{}
		}
		return NewDrag(d.pixelsPerMinute), Effect{Kind: EffectCommit, TaskID: d.taskID, Start: d.proposed}

	case PointerLeave:
		if d.state != Dragging {
			return d, Effect{}
		}
		return NewDrag(d.pixelsPerMinute), Effect{Kind: EffectCancel, TaskID: d.taskID}
	}
	return d, Effect{}
}

// Nudge replays a complete gesture that moves a block by delta pixels and
// returns the resulting commit. Fixed blocks produce EffectNone.
func Nudge(block ScheduledBlock, fixed bool, delta Pixels, pixelsPerMinute float64) Effect {
	d := NewDrag(pixelsPerMinute)
	d, started := d.Dispatch(PointerDown{TaskID: block.TaskID, Start: block.StartTime, Fixed: fixed})
	if started.Kind != EffectStarted {
		return Effect{}
	}
	d, _ = d.Dispatch(PointerMove{Y: delta})
	_, commit := d.Dispatch(PointerUp{})
	return commit
}
