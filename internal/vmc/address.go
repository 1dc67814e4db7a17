// Package vmc interprets decoded VMC messages: it classifies addresses,
// translates blend-shape names and turns messages into typed avatar events.
// It never touches the socket or the decoder's buffers.
package vmc

import (
	"strings"

	"github.com/banshee-data/vmc-listener/internal/osc"
)

// Known VMC addresses.
const (
	RootPoseAddress   = "/VMC/Ext/Root/Pos"
	BonePoseAddress   = "/VMC/Ext/Bone/Pos"
	BlendValueAddress = "/VMC/Ext/Blend/Val"
	BlendApplyAddress = osc.SentinelAddress
	EyeTargetAddress  = "/VMC/Ext/Set/Eye"
	CameraAddress     = "/VMC/Ext/Cam"
	StatusAddress     = "/VMC/Ext/OK"
	TimeAddress       = "/VMC/Ext/T"
)

// Kind identifies which VMC address family a message belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindRootPose
	KindBonePose
	KindBlendValue
	KindBlendApply
	KindEyeTarget
	KindCamera
	KindStatus
	KindTime
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindRootPose:   "root",
	KindBonePose:   "bone",
	KindBlendValue: "blend",
	KindBlendApply: "apply",
	KindEyeTarget:  "eye",
	KindCamera:     "camera",
	KindStatus:     "status",
	KindTime:       "time",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// addressTails maps the "Ext/..." tail of each address to its kind. Bundles
// from standard OSC senders read through the VMC framing lose the start of
// the first address and gain a size byte in front of the others, so only
// the tail is reliable.
var addressTails = []struct {
	tail string
	kind Kind
}{
	{"Ext/Root/Pos", KindRootPose},
	{"Ext/Bone/Pos", KindBonePose},
	{"Ext/Blend/Val", KindBlendValue},
	{"Ext/Blend/Apply", KindBlendApply},
	{"Ext/Set/Eye", KindEyeTarget},
	{"Ext/Cam", KindCamera},
	{"Ext/OK", KindStatus},
	{"Ext/T", KindTime},
}

// Classify returns the kind of address. Matching is on the address suffix.
func Classify(address string) Kind {
	for _, at := range addressTails {
		if strings.HasSuffix(address, at.tail) {
			return at.kind
		}
	}
	return KindUnknown
}
