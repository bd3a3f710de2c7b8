package termmap

import (
	"sync"

	"github.com/unklstewy/flightarcs/pkg/mapsink"
)

// Follower tracks the sink camera and layers manual pan/zoom on top of it.
// Any camera change, such as fitting a new destination, drops the manual view.
// It is safe for concurrent use.
type Follower struct {
	mu     sync.Mutex
	camera mapsink.Camera
	user   *Viewport
	last   Viewport
}

// Viewport returns the view for cam in a width x height grid.
func (f *Follower) Viewport(cam mapsink.Camera, width, height int) Viewport {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cam != f.camera {
		f.camera = cam
		f.user = nil
	}

	v := FromCamera(cam, width, height)
	if f.user != nil {
		v = *f.user
		v.Width, v.Height = max(width, 1), max(height, 1)
	}
	f.last = v
	return v
}

// Last returns the viewport from the most recent Viewport call.
func (f *Follower) Last() Viewport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Adjust applies fn to the current view and keeps the result until the camera moves.
func (f *Follower) Adjust(fn func(Viewport) Viewport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := fn(f.last)
	f.user = &v
	f.last = v
}

// Reset follows the camera again.
func (f *Follower) Reset() {
	f.mu.Lock()
	f.user = nil
	f.mu.Unlock()
}

// Manual reports whether a manual view is active.
func (f *Follower) Manual() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user != nil
}
