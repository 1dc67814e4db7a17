package vmc

import (
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/vmc-listener/internal/timeutil"
)

// State is the latest known avatar state, fed by Updates from the poll
// loop and read by the HTTP API.
//
// Blend-shape weights are staged as pending until a blend-apply arrives,
// then committed together.
type State struct {
	mu    sync.RWMutex
	clock timeutil.Clock

	root    *RootPose
	bones   map[string]BonePose
	pending map[string]BlendShape
	applied map[string]BlendShape
	eye     *EyeTarget
	camera  *Camera
	status  *Status
	sender  *Time

	updates    uint64
	applies    uint64
	lastUpdate time.Time
	lastApply  time.Time
}

// NewState returns an empty State stamping updates with clock. A nil clock
// uses the real one.
func NewState(clock timeutil.Clock) *State {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &State{
		clock:   clock,
		bones:   make(map[string]BonePose),
		pending: make(map[string]BlendShape),
		applied: make(map[string]BlendShape),
	}
}

// Apply folds u into the state. Empty updates are ignored.
func (s *State) Apply(u Update) {
	if u.Empty() {
		return
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Root != nil {
		r := *u.Root
		s.root = &r
	}
	for _, b := range u.Bones {
		s.bones[b.Name] = b
	}
	for _, b := range u.BlendShapes {
		s.pending[b.Name] = b
	}
	if u.Applied {
		for name, b := range s.pending {
			s.applied[name] = b
		}
		clear(s.pending)
		s.applies++
		s.lastApply = now
	}
	if u.Eye != nil {
		e := *u.Eye
		s.eye = &e
	}
	if u.Camera != nil {
		c := *u.Camera
		s.camera = &c
	}
	if u.Status != nil {
		st := *u.Status
		s.status = &st
	}
	if u.Time != nil {
		t := *u.Time
		s.sender = &t
	}
	s.updates++
	s.lastUpdate = now
}

// BlendWeight returns the committed weight for a translated shape name.
func (s *State) BlendWeight(name string) (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.applied[name]
	return b.Weight, ok
}

// Bone returns the latest pose of the named bone.
func (s *State) Bone(name string) (BonePose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bones[name]
	return b, ok
}

// Snapshot is a point-in-time copy of State, shaped for JSON.
type Snapshot struct {
	Root        *RootPose    `json:"root,omitempty"`
	Bones       []BonePose   `json:"bones"`
	BlendShapes []BlendShape `json:"blend_shapes"`
	Pending     []BlendShape `json:"pending_blend_shapes"`
	Eye         *EyeTarget   `json:"eye,omitempty"`
	Camera      *Camera      `json:"camera,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	SenderTime  *Time        `json:"sender_time,omitempty"`
	Updates     uint64       `json:"updates"`
	Applies     uint64       `json:"applies"`
	LastUpdate  time.Time    `json:"last_update"`
	LastApply   time.Time    `json:"last_apply"`
}

// Snapshot copies the current state. Bones and blend shapes are sorted by
// name.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Bones:       make([]BonePose, 0, len(s.bones)),
		BlendShapes: sortedShapes(s.applied),
		Pending:     sortedShapes(s.pending),
		Root:        clonePtr(s.root),
		Eye:         clonePtr(s.eye),
		Camera:      clonePtr(s.camera),
		Status:      clonePtr(s.status),
		SenderTime:  clonePtr(s.sender),
		Updates:     s.updates,
		Applies:     s.applies,
		LastUpdate:  s.lastUpdate,
		LastApply:   s.lastApply,
	}
	for _, b := range s.bones {
		snap.Bones = append(snap.Bones, b)
	}
	sort.Slice(snap.Bones, func(i, j int) bool { return snap.Bones[i].Name < snap.Bones[j].Name })
	return snap
}

func sortedShapes(m map[string]BlendShape) []BlendShape {
	out := make([]BlendShape, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
