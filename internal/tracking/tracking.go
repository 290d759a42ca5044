// Package tracking simulates courier movement and computes map viewports.
// The interpolation is a placeholder for real GPS telemetry: each tick
// moves the courier a fixed fraction of the remaining distance toward the
// destination, which gives the smoothed ease-out approach the dashboards
// animate.
package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/vrtelolleva/platform/internal/domain"
)

const (
	DefaultStepFraction = 0.05
	DefaultTickInterval = 2 * time.Second
)

// Step returns pos moved toward dest by fraction of the remaining
// distance on each axis.
func Step(pos, dest domain.Location, fraction float64) domain.Location {
	return domain.Location{
		Lat: pos.Lat + (dest.Lat-pos.Lat)*fraction,
		Lng: pos.Lng + (dest.Lng-pos.Lng)*fraction,
	}
}

// Viewport frames a map: either an explicit bounding box or a fallback
// center point with a zoom level.
type Viewport struct {
	// Bounds is set when at least one point was present.
	Bounds *BoundingBox `json:"bounds,omitempty"`

	Center domain.Location `json:"center"`
	Zoom   int             `json:"zoom"`
}

type BoundingBox struct {
	SouthWest domain.Location `json:"south_west"`
	NorthEast domain.Location `json:"north_east"`
}

// extend grows the box to include p.
func (b *BoundingBox) extend(p domain.Location) {
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

// FitBounds computes the minimal bounding box covering the present points
// (any of client, business, delivery may be nil). With zero points it
// returns the fallback viewport unchanged.
func FitBounds(client, business, delivery *domain.Location, fallback Viewport) Viewport {
	var box *BoundingBox
	for _, p := range []*domain.Location{client, business, delivery} {
		if p == nil {
			continue
		}
		if box == nil {
			box = &BoundingBox{SouthWest: *p, NorthEast: *p}
			continue
		}
		box.extend(*p)
	}

	if box == nil {
		return fallback
	}

	center := domain.Location{
		Lat: (box.SouthWest.Lat + box.NorthEast.Lat) / 2,
		Lng: (box.SouthWest.Lng + box.NorthEast.Lng) / 2,
	}
	return Viewport{Bounds: box, Center: center, Zoom: fallback.Zoom}
}

// Simulator drives one courier toward one destination on a fixed tick.
// Each new position is reported through the update callback; the caller
// decides where it lands (the order store, in the server).
type Simulator struct {
	fraction float64
	interval time.Duration
	logger   *slog.Logger
}

type SimulatorOption func(*Simulator)

func WithStepFraction(f float64) SimulatorOption {
	return func(s *Simulator) { s.fraction = f }
}

func WithTickInterval(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.interval = d }
}

func NewSimulator(logger *slog.Logger, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		fraction: DefaultStepFraction,
		interval: DefaultTickInterval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run interpolates from start toward dest until ctx is cancelled, calling
// update with every new position. It blocks; run it in its own goroutine.
func (s *Simulator) Run(ctx context.Context, start, dest domain.Location, update func(domain.Location)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("courier simulation started", "start", start, "dest", dest, "interval", s.interval)

	pos := start
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos = Step(pos, dest, s.fraction)
			update(pos)
		}
	}
}
