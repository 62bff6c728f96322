package vulkan

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func TestTable(t *testing.T) {
	tb := newTable[string]()
	a := tb.put("a")
	b := tb.put("b")
	if a == 0 || b == 0 || a == b {
		t.Fatalf("put() handles = %d, %d, want distinct non-zero", a, b)
	}
	if v, ok := tb.get(a); !ok || v != "a" {
		t.Errorf("get(%d) = %q, %v, want \"a\", true", a, v, ok)
	}
	if _, ok := tb.take(a); !ok {
		t.Errorf("take(%d) ok = false, want true", a)
	}
	if _, ok := tb.take(a); ok {
		t.Errorf("second take(%d) ok = true, want false", a)
	}
	c := tb.put("c")
	if c == a {
		t.Errorf("put() reused handle %d", a)
	}
	if got := tb.drain(); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("drain() = %v, want [b c]", got)
	}
	if got := tb.len(); got != 0 {
		t.Errorf("len() after drain = %d, want 0", got)
	}
}

func TestTableConcurrentPut(t *testing.T) {
	tb := newTable[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tb.put(i*100 + j)
			}
		}(i)
	}
	wg.Wait()
	if got := tb.len(); got != 800 {
		t.Errorf("len() = %d, want 800", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for f := range formats {
		got, ok := fromFormat(toFormat(f))
		if !ok || got != f {
			t.Errorf("fromFormat(toFormat(%d)) = %d, %v, want %d, true", f, got, ok, f)
		}
	}
	if _, ok := fromFormat(vk.FormatA2b10g10r10UnormPack32); ok {
		t.Errorf("fromFormat(A2B10G10R10) ok = true, want false")
	}
}

func TestPresentModeRoundTrip(t *testing.T) {
	for m := range presentModes {
		got, ok := fromPresentMode(toPresentMode(m))
		if !ok || got != m {
			t.Errorf("fromPresentMode(toPresentMode(%s)) = %s, %v", m, got, ok)
		}
	}
}

func TestToResult(t *testing.T) {
	tests := []struct {
		in   vk.Result
		want metadata.Result
	}{
		{vk.Success, metadata.ResultSuccess},
		{vk.NotReady, metadata.ResultNotReady},
		{vk.Timeout, metadata.ResultTimeout},
		{vk.Suboptimal, metadata.ResultSuboptimal},
		{vk.ErrorOutOfDate, metadata.ResultErrorOutOfDate},
		{vk.ErrorDeviceLost, metadata.ResultErrorDeviceLost},
		{vk.ErrorSurfaceLost, metadata.ResultErrorSurfaceLost},
		{vk.ErrorOutOfHostMemory, metadata.ResultErrorUnknown},
	}
	for _, tt := range tests {
		if got := toResult(tt.in); got != tt.want {
			t.Errorf("toResult(%s) = %s, want %s", VulkanResultString(tt.in), got, tt.want)
		}
	}
}

func TestResultError(t *testing.T) {
	if err := resultError("vkQueueSubmit", vk.ErrorDeviceLost); !errors.Is(err, core.ErrDeviceLost) {
		t.Errorf("resultError(DEVICE_LOST) = %v, want ErrDeviceLost", err)
	}
	if err := resultError("vkQueuePresent", vk.ErrorOutOfDate); !errors.Is(err, core.ErrOutOfDate) {
		t.Errorf("resultError(OUT_OF_DATE) = %v, want ErrOutOfDate", err)
	}
	if got := VulkanResultString(vk.Result(-12345)); got != "VkResult(-12345)" {
		t.Errorf("VulkanResultString(-12345) = %q", got)
	}
}

func TestFlags(t *testing.T) {
	stages := toPipelineStageFlags(metadata.PipelineStageColorAttachmentOutput | metadata.PipelineStageEarlyFragmentTests)
	want := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	if stages != want {
		t.Errorf("toPipelineStageFlags() = %#x, want %#x", stages, want)
	}
	if got := toShaderStageFlags(metadata.ShaderStageVertex | metadata.ShaderStageFragment); got != vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit) {
		t.Errorf("toShaderStageFlags() = %#x", got)
	}
	depth := toAspectFlags(metadata.ImageAspectDepth, metadata.FormatD32Sfloat)
	if depth != vk.ImageAspectFlags(vk.ImageAspectDepthBit) {
		t.Errorf("toAspectFlags(D32) = %#x, want depth only", depth)
	}
	stencil := toAspectFlags(metadata.ImageAspectDepth, metadata.FormatD24UnormS8Uint)
	if stencil != vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit) {
		t.Errorf("toAspectFlags(D24S8) = %#x, want depth|stencil", stencil)
	}
}

func TestClearValue(t *testing.T) {
	cv := clearValue(metadata.ClearColorUint(7))
	if got := *(*[4]uint32)(unsafe.Pointer(&cv)); got != [4]uint32{7, 7, 7, 7} {
		t.Errorf("clearValue(uint 7) = %v", got)
	}
	cv = clearValue(metadata.ClearColor(0.25, 0.5, 0.75, 1))
	if got := *(*[4]float32)(unsafe.Pointer(&cv)); got != [4]float32{0.25, 0.5, 0.75, 1} {
		t.Errorf("clearValue(color) = %v", got)
	}
}

func TestStrings(t *testing.T) {
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("VulkanSafeString(main) = %q", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("VulkanSafeString(main\\x00) = %q", got)
	}
	in := []string{"a", "b"}
	VulkanSafeStrings(in)
	if in[0] != "a" {
		t.Errorf("VulkanSafeStrings modified its input: %q", in)
	}
	var name [16]byte
	copy(name[:], "llvmpipe")
	if got := cString(name[:]); got != "llvmpipe" {
		t.Errorf("cString() = %q, want llvmpipe", got)
	}
}

func TestLockPool(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(BufferManagement, func() error {
				counter++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = pool.SafeQueueCall(0, func() error { return nil })
		}()
	}
	wg.Wait()
	if counter != 16 {
		t.Errorf("counter = %d, want 16", counter)
	}
	want := errors.New("boom")
	if err := pool.SafeCall(PipelineManagement, func() error { return want }); err != want {
		t.Errorf("SafeCall() = %v, want %v", err, want)
	}
}
