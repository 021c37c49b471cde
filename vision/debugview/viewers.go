package debugview

import (
	"context"
	"sync"

	"go.viam.com/textiles/logging"
)

type loggingViewer struct {
	logger logging.Logger
}

// NewLoggingViewer returns a Viewer that writes a summary of every batch to logger.
func NewLoggingViewer(logger logging.Logger) Viewer {
	return &loggingViewer{logger: logger}
}

func (v *loggingViewer) Show(ctx context.Context, batch Batch) error {
	for _, item := range batch.Items {
		color := item.Tag.String()
		if c, ok := item.Tag.Color(); ok {
			color = c.Hex()
		}
		fields := []interface{}{"window", batch.Window, "kind", item.Kind.String(), "label", item.Label, "color", color}
		switch item.Kind {
		case CloudItem:
			fields = append(fields, "points", item.Cloud.Size())
		case PlaneItem:
			fields = append(fields, "coefficients", []float64{item.Plane.A, item.Plane.B, item.Plane.C, item.Plane.D})
		case BoxItem:
			fields = append(fields, "center", item.Box.Center, "extents", item.Box.Extents)
		}
		v.logger.Infow("debug item", fields...)
	}
	return nil
}

// RecordingViewer keeps every batch it is shown.
type RecordingViewer struct {
	mu      sync.Mutex
	batches []Batch
}

// Show records batch.
func (v *RecordingViewer) Show(ctx context.Context, batch Batch) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.batches = append(v.batches, batch)
	return nil
}

// Batches returns the batches shown so far.
func (v *RecordingViewer) Batches() []Batch {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Batch(nil), v.batches...)
}
