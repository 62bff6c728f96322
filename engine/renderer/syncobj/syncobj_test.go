package syncobj

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/renderer/noop"
)

func TestNew(t *testing.T) {
	dev := noop.New()
	s, err := New(dev, 3, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.FramesInFlight(); got != 2 {
		t.Errorf("FramesInFlight() = %d, want 2", got)
	}
	if got := s.NumImages(); got != 3 {
		t.Errorf("NumImages() = %d, want 3", got)
	}
	if got := dev.Live("fence"); got != 2 {
		t.Errorf("live fences = %d, want 2", got)
	}
	if got := dev.Live("semaphore"); got != 5 {
		t.Errorf("live semaphores = %d, want 5", got)
	}
	for slot := 0; slot < 2; slot++ {
		if !dev.Signaled(s.InFlightFence(slot)) {
			t.Errorf("InFlightFence(%d) not created signaled", slot)
		}
	}
	for img := uint32(0); img < 3; img++ {
		if _, ok := s.ImageInFlight(img); ok {
			t.Errorf("ImageInFlight(%d) set after New()", img)
		}
	}
}

func TestNewRejectsZeroFrames(t *testing.T) {
	if _, err := New(noop.New(), 3, 0); err == nil {
		t.Error("New(framesInFlight=0) error = nil, want error")
	}
}

func TestNewFailureReleasesObjects(t *testing.T) {
	dev := noop.New()
	dev.Failures["CreateFence"] = errors.New("boom")
	if _, err := New(dev, 3, 2); err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if got := dev.Live("semaphore"); got != 0 {
		t.Errorf("live semaphores after failed New() = %d, want 0", got)
	}
}

func TestRecreate(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		next    int
	}{
		{"grow", 2, 4},
		{"shrink", 4, 2},
		{"same", 3, 3},
		{"to zero", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := noop.New()
			s, err := New(dev, tt.initial, 2)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			slotSems := []uint64{uint64(s.ImageAvailable(0)), uint64(s.ImageAvailable(1))}
			slotFences := []uint64{uint64(s.InFlightFence(0)), uint64(s.InFlightFence(1))}
			for i := 0; i < tt.initial; i++ {
				s.SetImageInFlight(uint32(i), s.InFlightFence(i%2))
			}

			if err := s.Recreate(tt.next); err != nil {
				t.Fatalf("Recreate() error = %v", err)
			}
			if got := s.NumImages(); got != tt.next {
				t.Errorf("NumImages() = %d, want %d", got, tt.next)
			}
			for i := 0; i < tt.next; i++ {
				if _, ok := s.ImageInFlight(uint32(i)); ok {
					t.Errorf("ImageInFlight(%d) set after Recreate()", i)
				}
				if s.RenderFinished(uint32(i)) == 0 {
					t.Errorf("RenderFinished(%d) is null", i)
				}
			}
			for slot := 0; slot < 2; slot++ {
				if uint64(s.ImageAvailable(slot)) != slotSems[slot] {
					t.Errorf("ImageAvailable(%d) changed across Recreate()", slot)
				}
				if uint64(s.InFlightFence(slot)) != slotFences[slot] {
					t.Errorf("InFlightFence(%d) changed across Recreate()", slot)
				}
			}
			if got, want := dev.Live("semaphore"), 2+tt.next; got != want {
				t.Errorf("live semaphores = %d, want %d", got, want)
			}
			if got := dev.Count("DestroyFence"); got != 0 {
				t.Errorf("DestroyFence calls = %d, want 0", got)
			}
		})
	}
}

func TestDestroyTwice(t *testing.T) {
	dev := noop.New()
	s, err := New(dev, 3, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Destroy()
	s.Destroy()
	if got := dev.Live("semaphore") + dev.Live("fence"); got != 0 {
		t.Errorf("live objects after Destroy() = %d, want 0", got)
	}
	if df := dev.DoubleFrees(); len(df) != 0 {
		t.Errorf("double frees = %v", df)
	}
}
