// Package debugview collects colour-tagged snapshots of intermediate pipeline state and
// hands them to a Viewer in batches.
package debugview

import (
	"context"
	"sync"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/rimage"
	"go.viam.com/textiles/spatialmath"
	"go.viam.com/textiles/vision/segmentation"
)

// ColorTag selects how an item is drawn.
type ColorTag int

// The available tags. Original draws clouds with their own point colours.
const (
	Red ColorTag = iota
	Blue
	Yellow
	Green
	Magenta
	Original
)

func (tag ColorTag) String() string {
	switch tag {
	case Red:
		return "red"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	case Magenta:
		return "magenta"
	case Original:
		return "original"
	}
	return "unknown"
}

// Color returns the colour for the tag. The second return is false for Original.
func (tag ColorTag) Color() (rimage.Color, bool) {
	switch tag {
	case Red:
		return rimage.Red, true
	case Blue:
		return rimage.Blue, true
	case Yellow:
		return rimage.Yellow, true
	case Green:
		return rimage.Green, true
	case Magenta:
		return rimage.Magenta, true
	}
	return rimage.Color{}, false
}

// ItemKind is what an Item holds.
type ItemKind int

// Item kinds.
const (
	CloudItem ItemKind = iota
	PlaneItem
	BoxItem
)

func (k ItemKind) String() string {
	switch k {
	case CloudItem:
		return "cloud"
	case PlaneItem:
		return "plane"
	case BoxItem:
		return "box"
	}
	return "unknown"
}

// Item is one snapshot. Exactly one of Cloud, Plane and Box is set, according to Kind.
type Item struct {
	Kind  ItemKind
	Label string
	Tag   ColorTag

	Cloud pc.PointCloud
	Plane *segmentation.PlaneModel
	Box   *spatialmath.OrientedBoundingBox
}

// Batch is the set of items flushed together to one window.
type Batch struct {
	Window string
	Items  []Item
}

// A Viewer displays batches.
type Viewer interface {
	Show(ctx context.Context, batch Batch) error
}

// Sink buffers snapshots until Show. A disabled or nil Sink drops everything and never
// calls its Viewer. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	enabled bool
	viewer  Viewer
	pending []Item
	logger  logging.Logger
}

// NewSink returns a sink flushing to viewer.
func NewSink(enabled bool, viewer Viewer, logger logging.Logger) *Sink {
	return &Sink{enabled: enabled, viewer: viewer, logger: logger}
}

// Enabled reports whether the sink records items.
func (s *Sink) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.viewer != nil
}

// SetEnabled turns recording on or off. Turning it off discards pending items.
func (s *Sink) SetEnabled(enabled bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if !enabled {
		s.pending = nil
	}
}

// AddCloud records a snapshot of cloud. Clouds are immutable, so no copy is taken.
func (s *Sink) AddCloud(label string, cloud pc.PointCloud, tag ColorTag) {
	s.add(Item{Kind: CloudItem, Label: label, Tag: tag, Cloud: cloud})
}

// AddPlane records a copy of plane.
func (s *Sink) AddPlane(label string, plane segmentation.PlaneModel, tag ColorTag) {
	s.add(Item{Kind: PlaneItem, Label: label, Tag: tag, Plane: &plane})
}

// AddBox records a copy of box.
func (s *Sink) AddBox(label string, box *spatialmath.OrientedBoundingBox, tag ColorTag) {
	if box == nil {
		return
	}
	boxCopy := *box
	s.add(Item{Kind: BoxItem, Label: label, Tag: tag, Box: &boxCopy})
}

func (s *Sink) add(item Item) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, item)
}

// Pending returns the number of buffered items.
func (s *Sink) Pending() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Show flushes the buffered items to the viewer as one batch titled window. Nothing is
// shown when there are no items.
func (s *Sink) Show(ctx context.Context, window string) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	batch := Batch{Window: window, Items: s.pending}
	s.pending = nil
	viewer := s.viewer
	s.mu.Unlock()

	if len(batch.Items) == 0 {
		return nil
	}
	if s.logger != nil {
		s.logger.Debugw("showing debug batch", "window", window, "items", len(batch.Items))
	}
	return viewer.Show(ctx, batch)
}
