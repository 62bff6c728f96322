package pipeline

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// LoadShader reads a SPIR-V file and returns its words.
func LoadShader(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "failed to read shader %q", path), core.ErrShaderMissing)
		core.LogError(err.Error())
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		err := errors.Mark(errors.Newf("shader %q has invalid size %d", path, len(data)), core.ErrShaderInvalid)
		core.LogError(err.Error())
		return nil, err
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != SPIRVMagic {
		err := errors.Mark(errors.Newf("shader %q has bad magic 0x%08x", path, code[0]), core.ErrShaderInvalid)
		core.LogError(err.Error())
		return nil, err
	}
	return code, nil
}

// shaderModules tracks the transient modules of one build so they can all be
// released before the builder returns.
type shaderModules struct {
	device  metadata.PipelineDevice
	modules []metadata.ShaderModule
}

func (s *shaderModules) load(path string, stage metadata.ShaderStage) (metadata.ShaderStageInfo, error) {
	code, err := LoadShader(path)
	if err != nil {
		return metadata.ShaderStageInfo{}, err
	}
	module, err := s.device.CreateShaderModule(code)
	if err != nil {
		err = errors.Wrapf(err, "failed to create shader module for %q", path)
		core.LogError(err.Error())
		return metadata.ShaderStageInfo{}, err
	}
	s.modules = append(s.modules, module)
	return metadata.ShaderStageInfo{Stage: stage, Module: module, Entry: "main"}, nil
}

func (s *shaderModules) release() {
	for _, m := range s.modules {
		s.device.DestroyShaderModule(m)
	}
	s.modules = nil
}
