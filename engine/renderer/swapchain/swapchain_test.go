package swapchain

import (
	"testing"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	unorm := metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	wrongSpace := metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceExtendedSrgbLinear}

	tests := []struct {
		name    string
		formats []metadata.SurfaceFormat
		want    metadata.SurfaceFormat
	}{
		{"preferred present", []metadata.SurfaceFormat{unorm, srgb}, srgb},
		{"fallback to first", []metadata.SurfaceFormat{unorm, wrongSpace}, unorm},
		{"color space must match", []metadata.SurfaceFormat{wrongSpace}, wrongSpace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseSurfaceFormat(tt.formats); got != tt.want {
				t.Errorf("ChooseSurfaceFormat() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes []metadata.PresentMode
		want  metadata.PresentMode
	}{
		{[]metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox}, metadata.PresentModeMailbox},
		{[]metadata.PresentMode{metadata.PresentModeImmediate, metadata.PresentModeFifo}, metadata.PresentModeFifo},
		{nil, metadata.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := ChoosePresentMode(tt.modes); got != tt.want {
			t.Errorf("ChoosePresentMode(%v) = %v, want %v", tt.modes, got, tt.want)
		}
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{2, 8, 3},
		{2, 2, 2},
		{3, 0, 4},
		{1, 1, 1},
	}
	for _, tt := range tests {
		caps := metadata.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := ChooseImageCount(caps); got != tt.want {
			t.Errorf("ChooseImageCount(min=%d, max=%d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	bounds := metadata.SurfaceCapabilities{
		CurrentExtent:  metadata.Extent2D{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent},
		MinImageExtent: metadata.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: metadata.Extent2D{Width: 1920, Height: 1080},
	}
	fixed := bounds
	fixed.CurrentExtent = metadata.Extent2D{Width: 640, Height: 480}

	tests := []struct {
		name          string
		caps          metadata.SurfaceCapabilities
		width, height int
		want          metadata.Extent2D
	}{
		{"current extent wins", fixed, 1024, 768, metadata.Extent2D{Width: 640, Height: 480}},
		{"window inside range", bounds, 1024, 768, metadata.Extent2D{Width: 1024, Height: 768}},
		{"window too large", bounds, 4000, 3000, metadata.Extent2D{Width: 1920, Height: 1080}},
		{"window too small", bounds, 10, 2000, metadata.Extent2D{Width: 100, Height: 1080}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseExtent(tt.caps, tt.width, tt.height); got != tt.want {
				t.Errorf("ChooseExtent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChooseDepthFormat(t *testing.T) {
	dev := noop.New()
	dev.DepthFormats = map[metadata.Format]bool{metadata.FormatD24UnormS8Uint: true}
	got, ok := ChooseDepthFormat(dev)
	if !ok || got != metadata.FormatD24UnormS8Uint {
		t.Errorf("ChooseDepthFormat() = %v, %v, want D24UnormS8Uint, true", got, ok)
	}

	dev.DepthFormats = map[metadata.Format]bool{}
	if _, ok := ChooseDepthFormat(dev); ok {
		t.Error("ChooseDepthFormat() with no support ok = true, want false")
	}
}

func TestNew(t *testing.T) {
	dev := noop.New()
	sc, err := New(dev, noop.NewWindow(800, 600))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := sc.NumImages(); got != 3 {
		t.Errorf("NumImages() = %d, want 3", got)
	}
	if got := sc.ImageFormat(); got != metadata.FormatB8G8R8A8Srgb {
		t.Errorf("ImageFormat() = %v, want B8G8R8A8Srgb", got)
	}
	if got := sc.PresentMode(); got != metadata.PresentModeMailbox {
		t.Errorf("PresentMode() = %v, want mailbox", got)
	}
	if got := sc.DepthFormat(); got != metadata.FormatD32Sfloat {
		t.Errorf("DepthFormat() = %v, want D32Sfloat", got)
	}
	if got := dev.Live("attachment"); got != 3 {
		t.Errorf("depth attachments = %d, want 3", got)
	}
	if got := dev.Live("imageview"); got != 3 {
		t.Errorf("image views = %d, want 3", got)
	}
	for i := 0; i < sc.NumImages(); i++ {
		if sc.ImageView(i) == 0 || sc.DepthView(i) == 0 {
			t.Errorf("image %d has a null view", i)
		}
	}
	if dev.LastSwapchainInfo.OldSwapchain != 0 {
		t.Errorf("first swapchain OldSwapchain = %d, want 0", dev.LastSwapchainInfo.OldSwapchain)
	}
}

func TestRecreateRetiresOldHandle(t *testing.T) {
	dev := noop.New()
	sc, err := New(dev, noop.NewWindow(800, 600))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first := sc.Handle()

	dev.Support.Capabilities.CurrentExtent = metadata.Extent2D{Width: 1024, Height: 768}
	dev.Support.Capabilities.MinImageCount = 3
	if err := sc.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	if got := dev.LastSwapchainInfo.OldSwapchain; got != first {
		t.Errorf("OldSwapchain = %d, want %d", got, first)
	}
	if !dev.IsLive("swapchain", metadata.Handle(first)) {
		t.Error("old swapchain destroyed before CleanupOld()")
	}
	if !sc.HasPendingRetirement() {
		t.Error("HasPendingRetirement() = false after Recreate()")
	}
	if got := sc.Extent(); got.Width != 1024 || got.Height != 768 {
		t.Errorf("Extent() = %+v, want 1024x768", got)
	}
	if got := sc.NumImages(); got != 4 {
		t.Errorf("NumImages() = %d, want 4", got)
	}

	sc.CleanupOld()
	if dev.IsLive("swapchain", metadata.Handle(first)) {
		t.Error("old swapchain still live after CleanupOld()")
	}
	if got := dev.Live("attachment"); got != 4 {
		t.Errorf("depth attachments after CleanupOld() = %d, want 4", got)
	}
}

func TestCleanupOldIdempotent(t *testing.T) {
	dev := noop.New()
	sc, err := New(dev, noop.NewWindow(800, 600))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sc.CleanupOld()
	if err := sc.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	sc.CleanupOld()
	before := len(dev.Calls())
	sc.CleanupOld()
	if after := len(dev.Calls()); after != before {
		t.Errorf("second CleanupOld() issued %d calls, want 0", after-before)
	}
	if df := dev.DoubleFrees(); len(df) != 0 {
		t.Errorf("double frees = %v", df)
	}
}

func TestDestroy(t *testing.T) {
	dev := noop.New()
	sc, err := New(dev, noop.NewWindow(800, 600))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sc.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	sc.Destroy()
	for _, kind := range []string{"swapchain", "imageview", "attachment"} {
		if got := dev.Live(kind); got != 0 {
			t.Errorf("live %s after Destroy() = %d, want 0", kind, got)
		}
	}
}
