package vmc

import (
	"fmt"

	"github.com/banshee-data/vmc-listener/internal/osc"
)

// Event is a typed VMC message.
type Event interface {
	Kind() Kind
}

// RootPose places the avatar root. Rotation is a quaternion (x, y, z, w)
// passed through unchanged.
type RootPose struct {
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
}

// BonePose is the local transform of one humanoid bone.
type BonePose struct {
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
}

// BlendShape is one blend-shape weight. Name is the translated name and
// Source the name as sent.
type BlendShape struct {
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Weight float32 `json:"weight"`
}

// BlendApply commits the blend-shape weights received since the last apply.
type BlendApply struct{}

// EyeTarget is the look-at point for the eyes.
type EyeTarget struct {
	Active   int32      `json:"active"`
	Position [3]float32 `json:"position"`
}

// Camera is the sender's camera transform and field of view.
type Camera struct {
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
	FOV      float32    `json:"fov"`
}

// Status reports whether the sender has a model loaded and, from newer
// senders, its calibration and tracking state.
type Status struct {
	Loaded           int32 `json:"loaded"`
	CalibrationState int32 `json:"calibration_state,omitempty"`
	CalibrationMode  int32 `json:"calibration_mode,omitempty"`
	TrackingStatus   int32 `json:"tracking_status,omitempty"`
}

// Time is the sender's relative clock in seconds.
type Time struct {
	Seconds float32 `json:"seconds"`
}

func (RootPose) Kind() Kind   { return KindRootPose }
func (BonePose) Kind() Kind   { return KindBonePose }
func (BlendShape) Kind() Kind { return KindBlendValue }
func (BlendApply) Kind() Kind { return KindBlendApply }
func (EyeTarget) Kind() Kind  { return KindEyeTarget }
func (Camera) Kind() Kind     { return KindCamera }
func (Status) Kind() Kind     { return KindStatus }
func (Time) Kind() Kind       { return KindTime }

// ArgumentError reports a message whose arguments do not fit its address.
type ArgumentError struct {
	Address string
	Index   int
	Want    osc.Kind
	Got     osc.Kind // KindInvalid when the argument is missing
}

func (e *ArgumentError) Error() string {
	if e.Got == osc.KindInvalid {
		return fmt.Sprintf("vmc: %s: missing %s argument %d", e.Address, e.Want, e.Index)
	}
	return fmt.Sprintf("vmc: %s: argument %d is %s, want %s", e.Address, e.Index, e.Got, e.Want)
}

// ErrUnknownAddress is returned by Decode for addresses Classify does not
// recognise.
type ErrUnknownAddress string

func (e ErrUnknownAddress) Error() string {
	return fmt.Sprintf("vmc: unknown address %q", string(e))
}

// Decode converts m into a typed event, translating blend-shape names
// through tr.
func Decode(m osc.Message, tr Translations) (Event, error) {
	a := args{m: m}
	switch Classify(m.Address) {
	case KindRootPose:
		name := a.str(0)
		pos, rot := a.vec3(1), a.quat(4)
		return RootPose{Name: name, Position: pos, Rotation: rot}, a.error()
	case KindBonePose:
		name := a.str(0)
		pos, rot := a.vec3(1), a.quat(4)
		return BonePose{Name: name, Position: pos, Rotation: rot}, a.error()
	case KindBlendValue:
		src := a.str(0)
		w := a.float(1)
		return BlendShape{Name: tr.Translate(src), Source: src, Weight: w}, a.error()
	case KindBlendApply:
		return BlendApply{}, nil
	case KindEyeTarget:
		active := a.int(0)
		return EyeTarget{Active: active, Position: a.vec3(1)}, a.error()
	case KindCamera:
		name := a.str(0)
		pos, rot := a.vec3(1), a.quat(4)
		fov := a.float(8)
		return Camera{Name: name, Position: pos, Rotation: rot, FOV: fov}, a.error()
	case KindStatus:
		s := Status{Loaded: a.int(0)}
		if len(m.Values) >= 3 {
			s.CalibrationState = a.int(1)
			s.CalibrationMode = a.int(2)
		}
		if len(m.Values) >= 4 {
			s.TrackingStatus = a.int(3)
		}
		return s, a.error()
	case KindTime:
		return Time{Seconds: a.float(0)}, a.error()
	default:
		return nil, ErrUnknownAddress(m.Address)
	}
}

// args reads positional arguments, keeping the first mismatch.
type args struct {
	m   osc.Message
	err *ArgumentError
}

func (a *args) fail(idx int, want osc.Kind) {
	if a.err != nil {
		return
	}
	got := osc.KindInvalid
	if idx < len(a.m.Values) {
		got = a.m.Values[idx].Kind()
	}
	a.err = &ArgumentError{Address: a.m.Address, Index: idx, Want: want, Got: got}
}

func (a *args) str(idx int) string {
	v, ok := a.m.String(idx)
	if !ok {
		a.fail(idx, osc.KindString)
	}
	return v
}

func (a *args) float(idx int) float32 {
	v, ok := a.m.Float(idx)
	if !ok {
		a.fail(idx, osc.KindFloat)
	}
	return v
}

func (a *args) int(idx int) int32 {
	v, ok := a.m.Int(idx)
	if !ok {
		a.fail(idx, osc.KindInt)
	}
	return v
}

func (a *args) vec3(idx int) [3]float32 {
	return [3]float32{a.float(idx), a.float(idx + 1), a.float(idx + 2)}
}

func (a *args) quat(idx int) [4]float32 {
	return [4]float32{a.float(idx), a.float(idx + 1), a.float(idx + 2), a.float(idx + 3)}
}

// error returns nil, not a typed nil, when every argument matched.
func (a *args) error() error {
	if a.err == nil {
		return nil
	}
	return a.err
}
