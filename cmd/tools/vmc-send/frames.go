package main

import (
	"math"
	"time"

	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

var (
	sampleBones  = []string{"Hips", "Spine", "Chest", "Neck", "Head", "LeftUpperArm", "RightUpperArm"}
	sampleShapes = []string{"A", "I", "U", "E", "O", "Blink", "Joy"}
)

// frameGenerator produces a looping idle animation: a swaying root, nodding
// bones and vowel blend shapes cycling through their weights.
//
// With FramingOSC frames are standard OSC bundles, as VMC senders emit
// them. FramingVMC writes the exact layout the default parser reads, in
// which the trailing blend-apply is a terminator and never delivered.
type frameGenerator struct {
	layout osc.Framing
	start  time.Time
	frame  int
}

func newFrameGenerator(layout osc.Framing, start time.Time) *frameGenerator {
	return &frameGenerator{layout: layout, start: start}
}

// frameMessages returns the messages of frame i at time t seconds.
func frameMessages(i int, t float64) []osc.Message {
	sway := float32(0.05 * math.Sin(t))
	msgs := []osc.Message{
		osc.NewMessage(vmc.StatusAddress, osc.Int(1)),
		osc.NewMessage(vmc.TimeAddress, osc.Float(float32(t))),
		osc.NewMessage(vmc.RootPoseAddress, osc.String("root"),
			osc.Float(sway), osc.Float(0), osc.Float(0),
			osc.Float(0), osc.Float(0), osc.Float(0), osc.Float(1)),
	}
	for b, name := range sampleBones {
		half := 0.1 * math.Sin(t+float64(b)) / 2
		msgs = append(msgs, osc.NewMessage(vmc.BonePoseAddress, osc.String(name),
			osc.Float(0), osc.Float(0.1*float32(b)), osc.Float(0),
			osc.Float(float32(math.Sin(half))), osc.Float(0), osc.Float(0), osc.Float(float32(math.Cos(half)))))
	}
	for s, name := range sampleShapes {
		w := float32(0.5 + 0.5*math.Sin(t*2+float64(s)))
		msgs = append(msgs, osc.NewMessage(vmc.BlendValueAddress, osc.String(name), osc.Float(w)))
	}
	if i%30 == 0 {
		msgs = append(msgs, osc.NewMessage(vmc.EyeTargetAddress, osc.Int(1),
			osc.Float(0), osc.Float(1.5), osc.Float(1)))
	}
	return append(msgs, osc.NewMessage(vmc.BlendApplyAddress))
}

// Next encodes the next frame as one datagram.
func (g *frameGenerator) Next(now time.Time) []byte {
	msgs := frameMessages(g.frame, now.Sub(g.start).Seconds())
	g.frame++
	if g.layout == osc.FramingVMC {
		return osc.AppendVMCBundle(nil, 1, msgs...)
	}
	return osc.AppendBundle(nil, 1, msgs...)
}
