package swapchain

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Device is the part of metadata.Device the swapchain needs.
type Device interface {
	metadata.PresentDevice
	metadata.TargetDevice
}

// generation is one swapchain handle plus everything created from it.
type generation struct {
	handle metadata.Swapchain
	images []metadata.Image
	views  []metadata.ImageView
	depth  []metadata.Attachment
}

type Swapchain struct {
	device Device
	window metadata.Window

	current generation
	// kept alive after Recreate until CleanupOld
	pendingRetirement *generation

	format      metadata.SurfaceFormat
	presentMode metadata.PresentMode
	depthFormat metadata.Format
	extent      metadata.Extent2D
}

func New(device Device, window metadata.Window) (*Swapchain, error) {
	s := &Swapchain{device: device, window: window}
	gen, err := s.create(0)
	if err != nil {
		return nil, err
	}
	s.current = *gen
	return s, nil
}

func (s *Swapchain) create(old metadata.Swapchain) (*generation, error) {
	support, err := s.device.SurfaceSupport()
	if err != nil {
		err = errors.Wrap(err, "failed to query surface support")
		core.LogError(err.Error())
		return nil, err
	}
	if len(support.Formats) == 0 {
		err := errors.New("surface reports no formats")
		core.LogError(err.Error())
		return nil, err
	}

	depthFormat, ok := ChooseDepthFormat(s.device)
	if !ok {
		err := errors.New("failed to find a supported depth format")
		core.LogError(err.Error())
		return nil, err
	}

	width, height := s.window.FramebufferSize()
	format := ChooseSurfaceFormat(support.Formats)
	mode := ChoosePresentMode(support.PresentModes)
	extent := ChooseExtent(support.Capabilities, width, height)

	handle, err := s.device.CreateSwapchain(metadata.SwapchainCreateInfo{
		MinImageCount: ChooseImageCount(support.Capabilities),
		Format:        format,
		Extent:        extent,
		PresentMode:   mode,
		OldSwapchain:  old,
	})
	if err != nil {
		err = errors.Wrap(err, "failed to create swapchain")
		core.LogError(err.Error())
		return nil, err
	}

	gen := &generation{handle: handle}
	if gen.images, err = s.device.SwapchainImages(handle); err != nil {
		s.destroyGeneration(gen)
		err = errors.Wrap(err, "failed to get swapchain images")
		core.LogError(err.Error())
		return nil, err
	}

	for i, img := range gen.images {
		view, err := s.device.CreateImageView(img, format.Format, metadata.ImageAspectColor)
		if err != nil {
			s.destroyGeneration(gen)
			err = errors.Wrapf(err, "failed to create view for swapchain image %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		gen.views = append(gen.views, view)

		depth, err := s.device.CreateAttachment(metadata.AttachmentCreateInfo{
			Format: depthFormat,
			Extent: extent,
			Usage:  metadata.ImageUsageDepthStencilAttachment,
			Aspect: metadata.ImageAspectDepth,
		})
		if err != nil {
			s.destroyGeneration(gen)
			err = errors.Wrapf(err, "failed to create depth image %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		gen.depth = append(gen.depth, depth)
	}

	s.format = format
	s.presentMode = mode
	s.depthFormat = depthFormat
	s.extent = extent

	core.LogDebug("swapchain created: %dx%d, %d images, %s", extent.Width, extent.Height, len(gen.images), mode)
	return gen, nil
}

func (s *Swapchain) destroyGeneration(gen *generation) {
	for _, d := range gen.depth {
		s.device.DestroyAttachment(d)
	}
	for _, v := range gen.views {
		s.device.DestroyImageView(v)
	}
	if gen.handle != 0 {
		s.device.DestroySwapchain(gen.handle)
	}
	*gen = generation{}
}

// Recreate builds a new swapchain, handing the current one to the driver as
// the old swapchain. The previous generation stays alive until CleanupOld so
// that command buffers still referencing it remain valid.
func (s *Swapchain) Recreate() error {
	if s.pendingRetirement != nil {
		// two recreates without a cleanup in between: the older one can go
		s.CleanupOld()
	}
	gen, err := s.create(s.current.handle)
	if err != nil {
		return err
	}
	retired := s.current
	s.pendingRetirement = &retired
	s.current = *gen
	return nil
}

// CleanupOld destroys the generation retired by the last Recreate. It does
// nothing when there is none.
func (s *Swapchain) CleanupOld() {
	if s.pendingRetirement == nil {
		return
	}
	s.destroyGeneration(s.pendingRetirement)
	s.pendingRetirement = nil
}

// HasPendingRetirement reports whether CleanupOld has work to do.
func (s *Swapchain) HasPendingRetirement() bool {
	return s.pendingRetirement != nil
}

func (s *Swapchain) Destroy() {
	s.CleanupOld()
	s.destroyGeneration(&s.current)
}

func (s *Swapchain) Handle() metadata.Swapchain {
	return s.current.handle
}

func (s *Swapchain) Extent() metadata.Extent2D {
	return s.extent
}

func (s *Swapchain) ImageFormat() metadata.Format {
	return s.format.Format
}

func (s *Swapchain) SurfaceFormat() metadata.SurfaceFormat {
	return s.format
}

func (s *Swapchain) PresentMode() metadata.PresentMode {
	return s.presentMode
}

func (s *Swapchain) DepthFormat() metadata.Format {
	return s.depthFormat
}

func (s *Swapchain) NumImages() int {
	return len(s.current.images)
}

func (s *Swapchain) ImageView(i int) metadata.ImageView {
	return s.current.views[i]
}

func (s *Swapchain) DepthView(i int) metadata.ImageView {
	return s.current.depth[i].View
}
