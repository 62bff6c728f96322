package vulkan

import (
	"runtime"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

const portabilitySubset = "VK_KHR_portability_subset"

func (d *Device) createDevice() error {
	if err := d.selectPhysicalDevice(); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	var supported vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.physicalDevice, &supported)
	supported.Deref()
	// The grid draws with SetLineWidth > 1 when the device allows it.
	d.wideLines = supported.WideLines == vk.True
	deviceFeatures := vk.PhysicalDeviceFeatures{WideLines: supported.WideLines}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensions(d.physicalDevice)
	if err != nil {
		return err
	}
	if _, ok := available[portabilitySubset]; ok {
		core.LogInfo("Adding required extension '%s'.", portabilitySubset)
		extensionNames = append(extensionNames, portabilitySubset)
	}

	queueCreateInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueCreateInfo},
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(d.physicalDevice, &deviceCreateInfo, nil, &device); res != vk.Success {
		return resultError("vkCreateDevice", res)
	}
	d.logicalDevice = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(d.logicalDevice, d.queueFamily, 0, &queue)
	d.queue = queue
	d.locks.SetQueueFamily(d.queueFamily)
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.logicalDevice, &poolCreateInfo, nil, &pool); res != vk.Success {
		return resultError("vkCreateCommandPool", res)
	}
	d.commandPool = pool
	core.LogInfo("Graphics command pool created.")
	return nil
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	names := make(map[string]struct{}, count)
	for i := range available {
		available[i].Deref()
		names[cString(available[i].ExtensionName[:])] = struct{}{}
	}
	return names, nil
}

func (d *Device) selectPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		err := errors.New("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, physicalDevices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DiscreteGPU:          true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	if runtime.GOOS == "darwin" {
		requirements.DiscreteGPU = false
	}

	// A discrete GPU wins; otherwise fall back to the first suitable device.
	selected := -1
	var family uint32
	for pass := 0; pass < 2 && selected < 0; pass++ {
		requirements.DiscreteGPU = requirements.DiscreteGPU && pass == 0
		for i, pd := range physicalDevices {
			if f, ok := d.meetsRequirements(pd, &requirements); ok {
				selected, family = i, f
				break
			}
		}
	}
	if selected < 0 {
		err := errors.New("no physical devices were found which meet the requirements")
		core.LogError(err.Error())
		return err
	}

	d.physicalDevice = physicalDevices[selected]
	d.queueFamily = family

	vk.GetPhysicalDeviceProperties(d.physicalDevice, &d.properties)
	d.properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.physicalDevice, &d.memory)
	d.memory.Deref()

	core.LogInfo("Selected device: '%s'.", cString(d.properties.DeviceName[:]))
	switch d.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(d.properties.ApiVersion).Major(),
		vk.Version(d.properties.ApiVersion).Minor(),
		vk.Version(d.properties.ApiVersion).Patch(),
	)
	for j := 0; j < int(d.memory.MemoryHeapCount); j++ {
		heap := d.memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	core.LogInfo("Physical device selected.")
	return nil
}

// meetsRequirements returns the queue family supporting both graphics and
// presentation to the surface.
func (d *Device) meetsRequirements(device vk.PhysicalDevice, requirements *VulkanPhysicalDeviceRequirements) (uint32, bool) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	name := cString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return 0, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	family := -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), d.surface, &supportsPresent); res != vk.Success {
			continue
		}
		if supportsPresent == vk.True {
			family = i
			break
		}
	}
	if family < 0 {
		core.LogDebug("Device '%s' has no graphics+present queue family. Skipping.", name)
		return 0, false
	}

	available, err := deviceExtensions(device)
	if err != nil {
		return 0, false
	}
	for _, ext := range requirements.DeviceExtensionNames {
		if _, ok := available[ext]; !ok {
			core.LogDebug("Required extension not found: '%s', skipping device.", ext)
			return 0, false
		}
	}

	support, err := d.querySurfaceSupport(device)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogDebug("Required swapchain support not present, skipping device '%s'.", name)
		return 0, false
	}
	core.LogDebug("Device '%s' meets requirements, queue family %d.", name, family)
	return uint32(family), true
}

func (d *Device) SurfaceSupport() (metadata.SurfaceSupport, error) {
	return d.querySurfaceSupport(d.physicalDevice)
}

func (d *Device) querySurfaceSupport(device vk.PhysicalDevice) (metadata.SurfaceSupport, error) {
	var out metadata.SurfaceSupport

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(device, d.surface, &caps); res != vk.Success {
		return out, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	out.Capabilities = metadata.SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  fromExtent(caps.CurrentExtent),
		MinImageExtent: fromExtent(caps.MinImageExtent),
		MaxImageExtent: fromExtent(caps.MaxImageExtent),
	}

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(device, d.surface, &formatCount, nil); res != vk.Success {
		return out, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if res := vk.GetPhysicalDeviceSurfaceFormats(device, d.surface, &formatCount, formats); res != vk.Success {
		return out, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	for i := range formats {
		formats[i].Deref()
		format, ok := fromFormat(formats[i].Format)
		if !ok {
			continue
		}
		colorSpace, ok := fromColorSpace(formats[i].ColorSpace)
		if !ok {
			continue
		}
		out.Formats = append(out.Formats, metadata.SurfaceFormat{Format: format, ColorSpace: colorSpace})
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(device, d.surface, &modeCount, nil); res != vk.Success {
		return out, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	modes := make([]vk.PresentMode, modeCount)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(device, d.surface, &modeCount, modes); res != vk.Success {
		return out, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	for _, m := range modes {
		if mode, ok := fromPresentMode(m); ok {
			out.PresentModes = append(out.PresentModes, mode)
		}
	}
	return out, nil
}

// SupportsDepthFormat reports whether format can back an optimally tiled
// depth/stencil attachment.
func (d *Device) SupportsDepthFormat(format metadata.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physicalDevice, toFormat(format), &properties)
	properties.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	return properties.OptimalTilingFeatures&flags == flags
}

func (d *Device) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.logicalDevice); res != vk.Success {
		return resultError("vkDeviceWaitIdle", res)
	}
	return nil
}
