package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type Config struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool
	// Upper bound on descriptor sets allocated from the shared pool.
	MaxDescriptorSets uint32
}

func DefaultConfig() Config {
	return Config{
		ApplicationName:   "vks",
		MaxDescriptorSets: 256,
	}
}

type image struct {
	handle vk.Image
	// nil for swapchain images, which the swapchain owns.
	memory vk.DeviceMemory
}

type buffer struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

type swapchain struct {
	handle vk.Swapchain
	images []metadata.Image
}

/**
 * @brief The Vulkan implementation of metadata.Device. Engine handles index
 * per-kind tables of native objects, so nothing outside this package sees a
 * vk type.
 */
type Device struct {
	config Config

	instance      vk.Instance
	surface       vk.Surface
	debugCallback vk.DebugReportCallback

	physicalDevice vk.PhysicalDevice
	logicalDevice  vk.Device
	properties     vk.PhysicalDeviceProperties
	memory         vk.PhysicalDeviceMemoryProperties
	wideLines      bool

	// A single family serves graphics and present.
	queueFamily    uint32
	queue          vk.Queue
	commandPool    vk.CommandPool
	descriptorPool vk.DescriptorPool

	locks *VulkanLockPool

	fences          *table[vk.Fence]
	semaphores      *table[vk.Semaphore]
	swapchains      *table[swapchain]
	images          *table[image]
	views           *table[vk.ImageView]
	renderPasses    *table[vk.RenderPass]
	framebuffers    *table[vk.Framebuffer]
	shaderModules   *table[vk.ShaderModule]
	pipelines       *table[vk.Pipeline]
	pipelineLayouts *table[vk.PipelineLayout]
	pipelineCaches  *table[vk.PipelineCache]
	setLayouts      *table[vk.DescriptorSetLayout]
	descriptorSets  *table[vk.DescriptorSet]
	buffers         *table[buffer]
}

var _ metadata.Device = (*Device)(nil)

func newDevice(config Config) *Device {
	return &Device{
		config:          config,
		locks:           NewVulkanLockPool(),
		fences:          newTable[vk.Fence](),
		semaphores:      newTable[vk.Semaphore](),
		swapchains:      newTable[swapchain](),
		images:          newTable[image](),
		views:           newTable[vk.ImageView](),
		renderPasses:    newTable[vk.RenderPass](),
		framebuffers:    newTable[vk.Framebuffer](),
		shaderModules:   newTable[vk.ShaderModule](),
		pipelines:       newTable[vk.Pipeline](),
		pipelineLayouts: newTable[vk.PipelineLayout](),
		pipelineCaches:  newTable[vk.PipelineCache](),
		setLayouts:      newTable[vk.DescriptorSetLayout](),
		descriptorSets:  newTable[vk.DescriptorSet](),
		buffers:         newTable[buffer](),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit in propertyFlags, or -1.
func (d *Device) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryType := d.memory.MemoryTypes[i]
		memoryType.Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryType.PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocate backs reqs with memory of the requested properties.
func (d *Device) allocate(reqs vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	reqs.Deref()
	index := d.FindMemoryIndex(reqs.MemoryTypeBits, flags)
	if index < 0 {
		return nil, resultError("FindMemoryIndex", vk.ErrorOutOfDeviceMemory)
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.logicalDevice, &info, nil, &memory); res != vk.Success {
		return nil, resultError("vkAllocateMemory", res)
	}
	return memory, nil
}
