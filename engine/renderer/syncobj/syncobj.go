package syncobj

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// SyncObjects holds the per frame slot semaphore/fence pairs and the per
// swapchain image semaphores and image-in-use tracking.
type SyncObjects struct {
	device metadata.SyncDevice

	// indexed by frame slot, never recreated
	imageAvailable []metadata.Semaphore
	inFlight       []metadata.Fence

	// indexed by swapchain image, recreated with the swapchain
	renderFinished []metadata.Semaphore
	imageInFlight  []metadata.Fence
}

func New(device metadata.SyncDevice, numImages, framesInFlight int) (*SyncObjects, error) {
	if framesInFlight < 1 {
		err := errors.Newf("frames in flight must be at least 1, got %d", framesInFlight)
		core.LogError(err.Error())
		return nil, err
	}
	s := &SyncObjects{
		device:         device,
		imageAvailable: make([]metadata.Semaphore, framesInFlight),
		inFlight:       make([]metadata.Fence, framesInFlight),
	}
	for i := 0; i < framesInFlight; i++ {
		sem, err := device.CreateSemaphore()
		if err != nil {
			s.Destroy()
			err = errors.Wrapf(err, "failed to create image available semaphore %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		s.imageAvailable[i] = sem

		// created signaled so the first wait on every slot returns immediately
		fence, err := device.CreateFence(true)
		if err != nil {
			s.Destroy()
			err = errors.Wrapf(err, "failed to create in-flight fence %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		s.inFlight[i] = fence
	}
	if err := s.createPerImage(numImages); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *SyncObjects) createPerImage(numImages int) error {
	s.renderFinished = make([]metadata.Semaphore, numImages)
	s.imageInFlight = make([]metadata.Fence, numImages)
	for i := 0; i < numImages; i++ {
		sem, err := s.device.CreateSemaphore()
		if err != nil {
			err = errors.Wrapf(err, "failed to create render finished semaphore %d", i)
			core.LogError(err.Error())
			return err
		}
		s.renderFinished[i] = sem
	}
	return nil
}

func (s *SyncObjects) destroyPerImage() {
	for i, sem := range s.renderFinished {
		if sem != 0 {
			s.device.DestroySemaphore(sem)
			s.renderFinished[i] = 0
		}
	}
	s.renderFinished = nil
	// imageInFlight only borrows the slot fences
	s.imageInFlight = nil
}

// Recreate resizes the per-image arrays to numImages. Every image-in-flight
// entry starts unset; the frame slot objects are left alone.
func (s *SyncObjects) Recreate(numImages int) error {
	s.destroyPerImage()
	return s.createPerImage(numImages)
}

// Destroy releases every object. Calling it twice is harmless.
func (s *SyncObjects) Destroy() {
	s.destroyPerImage()
	for i, sem := range s.imageAvailable {
		if sem != 0 {
			s.device.DestroySemaphore(sem)
			s.imageAvailable[i] = 0
		}
	}
	for i, fence := range s.inFlight {
		if fence != 0 {
			s.device.DestroyFence(fence)
			s.inFlight[i] = 0
		}
	}
	s.imageAvailable = nil
	s.inFlight = nil
}

func (s *SyncObjects) FramesInFlight() int {
	return len(s.inFlight)
}

func (s *SyncObjects) NumImages() int {
	return len(s.renderFinished)
}

func (s *SyncObjects) ImageAvailable(slot int) metadata.Semaphore {
	return s.imageAvailable[slot]
}

func (s *SyncObjects) InFlightFence(slot int) metadata.Fence {
	return s.inFlight[slot]
}

func (s *SyncObjects) RenderFinished(image uint32) metadata.Semaphore {
	return s.renderFinished[image]
}

// ImageInFlight returns the fence of the frame slot that last rendered into
// image, if any.
func (s *SyncObjects) ImageInFlight(image uint32) (metadata.Fence, bool) {
	f := s.imageInFlight[image]
	return f, f != 0
}

func (s *SyncObjects) SetImageInFlight(image uint32, fence metadata.Fence) {
	s.imageInFlight[image] = fence
}
