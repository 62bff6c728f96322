package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
)

// Surface is the window side of device creation. *glfw.Window satisfies it.
type Surface interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	GetRequiredInstanceExtensions() []string
}

const validationLayer = "VK_LAYER_KHRONOS_validation"

// New creates the instance, surface, logical device, queue, command pool and
// descriptor pool. On failure everything created so far is destroyed.
func New(window Surface, config Config) (*Device, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := errors.New("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize vk")
		core.LogError(err.Error())
		return nil, err
	}

	if config.MaxDescriptorSets == 0 {
		config.MaxDescriptorSets = DefaultConfig().MaxDescriptorSets
	}
	d := newDevice(config)

	if err := d.createInstance(window.GetRequiredInstanceExtensions()); err != nil {
		d.Destroy()
		return nil, err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(d.instance, nil)
	if err != nil {
		err = errors.Wrap(err, "vulkan surface creation failed")
		core.LogError(err.Error())
		d.Destroy()
		return nil, err
	}
	d.surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := d.createDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := d.createDescriptorPool(); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *Device) createInstance(windowExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(d.config.ApplicationName),
		PEngineName:        VulkanSafeString("vks"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, windowExtensions...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var layers []string
	if d.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if err := checkValidationLayer(); err != nil {
			return err
		}
		layers = []string{validationLayer}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, nil, &d.instance); res != vk.Success {
		return resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(d.instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if d.config.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		if res := vk.CreateDebugReportCallback(d.instance, &debugCreateInfo, nil, &d.debugCallback); res != vk.Success {
			return resultError("vkCreateDebugReportCallback", res)
		}
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func checkValidationLayer() error {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == validationLayer {
			core.LogInfo("All required validation layers are present.")
			return nil
		}
	}
	err := errors.Newf("required validation layer is missing: %s", validationLayer)
	core.LogError(err.Error())
	return err
}

// Destroy waits for the device to go idle and releases every object still
// registered, then the pools, the device, the surface and the instance.
func (d *Device) Destroy() {
	if d.logicalDevice != nil {
		vk.DeviceWaitIdle(d.logicalDevice)
		d.destroyObjects()

		if d.descriptorPool != vk.NullDescriptorPool {
			vk.DestroyDescriptorPool(d.logicalDevice, d.descriptorPool, nil)
			d.descriptorPool = vk.NullDescriptorPool
		}
		core.LogInfo("Destroying command pools...")
		if d.commandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(d.logicalDevice, d.commandPool, nil)
			d.commandPool = vk.NullCommandPool
		}
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.logicalDevice, nil)
		d.logicalDevice = nil
		d.queue = nil
	}
	// Physical devices are not destroyed.
	d.physicalDevice = nil

	if d.instance == nil {
		return
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
		d.surface = vk.NullSurface
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
		d.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(d.instance, nil)
	d.instance = nil
	core.LogInfo("Vulkan device destroyed.")
}

// destroyObjects releases leaked objects in reverse dependency order.
func (d *Device) destroyObjects() {
	dev := d.logicalDevice
	leaked := 0
	for _, p := range d.pipelines.drain() {
		vk.DestroyPipeline(dev, p, nil)
		leaked++
	}
	for _, l := range d.pipelineLayouts.drain() {
		vk.DestroyPipelineLayout(dev, l, nil)
		leaked++
	}
	for _, c := range d.pipelineCaches.drain() {
		vk.DestroyPipelineCache(dev, c, nil)
		leaked++
	}
	for _, m := range d.shaderModules.drain() {
		vk.DestroyShaderModule(dev, m, nil)
		leaked++
	}
	for _, fb := range d.framebuffers.drain() {
		vk.DestroyFramebuffer(dev, fb, nil)
		leaked++
	}
	for _, rp := range d.renderPasses.drain() {
		vk.DestroyRenderPass(dev, rp, nil)
		leaked++
	}
	for _, v := range d.views.drain() {
		vk.DestroyImageView(dev, v, nil)
		leaked++
	}
	for _, img := range d.images.drain() {
		if img.memory == nil {
			continue
		}
		vk.DestroyImage(dev, img.handle, nil)
		vk.FreeMemory(dev, img.memory, nil)
		leaked++
	}
	for _, sc := range d.swapchains.drain() {
		vk.DestroySwapchain(dev, sc.handle, nil)
		leaked++
	}
	for _, b := range d.buffers.drain() {
		vk.DestroyBuffer(dev, b.handle, nil)
		vk.FreeMemory(dev, b.memory, nil)
		leaked++
	}
	for _, l := range d.setLayouts.drain() {
		vk.DestroyDescriptorSetLayout(dev, l, nil)
		leaked++
	}
	// Sets go with their pool.
	d.descriptorSets.drain()
	for _, s := range d.semaphores.drain() {
		vk.DestroySemaphore(dev, s, nil)
		leaked++
	}
	for _, f := range d.fences.drain() {
		vk.DestroyFence(dev, f, nil)
		leaked++
	}
	if leaked > 0 {
		core.LogWarn("released %d device objects that were still alive at shutdown", leaked)
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
