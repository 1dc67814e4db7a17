package vmc

import (
	"errors"

	"github.com/banshee-data/vmc-listener/internal/osc"
)

// Update collects the events decoded from one poll.
type Update struct {
	Root        *RootPose
	Bones       []BonePose
	BlendShapes []BlendShape
	// Applied is set when a blend-apply message was seen.
	Applied bool
	Eye     *EyeTarget
	Camera  *Camera
	Status  *Status
	Time    *Time

	Unknown int     // messages at unrecognised addresses
	Errors  []error // *ArgumentError for messages that failed to decode
}

// Empty reports whether u carries no events.
func (u *Update) Empty() bool {
	return u.Root == nil && len(u.Bones) == 0 && len(u.BlendShapes) == 0 &&
		!u.Applied && u.Eye == nil && u.Camera == nil && u.Status == nil && u.Time == nil
}

// Dispatcher turns decoded messages into Updates. It is safe for
// concurrent use once constructed.
type Dispatcher struct {
	tr Translations
}

// NewDispatcher returns a Dispatcher translating blend-shape names with tr.
func NewDispatcher(tr Translations) *Dispatcher {
	return &Dispatcher{tr: tr}
}

// Translations returns the table the dispatcher translates with.
func (d *Dispatcher) Translations() Translations { return d.tr }

// Dispatch decodes msgs in order. Later root, eye and camera messages
// replace earlier ones within the same Update.
func (d *Dispatcher) Dispatch(msgs []osc.Message) Update {
	var u Update
	for _, m := range msgs {
		ev, err := Decode(m, d.tr)
		var unknown ErrUnknownAddress
		if errors.As(err, &unknown) {
			u.Unknown++
			continue
		}
		if err != nil {
			u.Errors = append(u.Errors, err)
			continue
		}
		switch e := ev.(type) {
		case RootPose:
			u.Root = &e
		case BonePose:
			u.Bones = append(u.Bones, e)
		case BlendShape:
			u.BlendShapes = append(u.BlendShapes, e)
		case BlendApply:
			u.Applied = true
		case EyeTarget:
			u.Eye = &e
		case Camera:
			u.Camera = &e
		case Status:
			u.Status = &e
		case Time:
			u.Time = &e
		}
	}
	return u
}
