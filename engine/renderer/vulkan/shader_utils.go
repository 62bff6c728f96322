package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// CreateShaderModule wraps SPIR-V words already validated by the caller.
func (d *Device) CreateShaderModule(code []uint32) (metadata.ShaderModule, error) {
	if len(code) == 0 {
		err := errors.Mark(errors.New("empty shader bytecode"), core.ErrShaderInvalid)
		core.LogError(err.Error())
		return 0, err
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType: vk.StructureTypeShaderModuleCreateInfo,
		// Size in bytes.
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := d.locks.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(d.logicalDevice, &createInfo, nil, &module); res != vk.Success {
			return errors.Mark(resultError("vkCreateShaderModule", res), core.ErrShaderInvalid)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.ShaderModule(d.shaderModules.put(module)), nil
}

func (d *Device) DestroyShaderModule(m metadata.ShaderModule) {
	if module, ok := d.shaderModules.take(metadata.Handle(m)); ok {
		vk.DestroyShaderModule(d.logicalDevice, module, nil)
	}
}

func (d *Device) shaderStage(s metadata.ShaderStageInfo) (vk.PipelineShaderStageCreateInfo, error) {
	module, ok := d.shaderModules.get(metadata.Handle(s.Module))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "shader module %d", s.Module)
		core.LogError(err.Error())
		return vk.PipelineShaderStageCreateInfo{}, err
	}
	entry := s.Entry
	if entry == "" {
		entry = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  toShaderStageBit(s.Stage),
		Module: module,
		PName:  VulkanSafeString(entry),
	}, nil
}
