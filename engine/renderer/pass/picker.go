package pass

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

const (
	// PickerPipeline is the pipeline name the picker pass draws with.
	PickerPipeline = "ObjectPicker"
	// pickerPushSize is sizeof({mat4 model; uint32 id}).
	pickerPushSize = 64 + 4
)

// PickerConfig describes the object picker pipeline.
type PickerConfig struct {
	VertexShader     string
	FragmentShader   string
	CameraSetLayout  metadata.DescriptorSetLayout
	VertexBindings   []metadata.VertexBinding
	VertexAttributes []metadata.VertexAttribute
}

/**
 * @brief Renders object ids into one R32_UINT image per swapchain image so
 * the editor can read back which object is under the cursor. Zero means no
 * object; object i is written as i+1.
 */
type PickerPass struct {
	base

	config PickerConfig
	ids    []metadata.Attachment
}

func NewPickerPass(ctx Context, config PickerConfig) (*PickerPass, error) {
	p := &PickerPass{config: config}
	p.base = newBase(TypePicker, ctx, p)
	if err := p.init(); err != nil {
		return nil, err
	}
	if err := p.pipelines.CreateOrReplace(PickerPipeline, p.pipelineDesc()); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *PickerPass) pipelineDesc() pipeline.Desc {
	g := pipeline.DefaultGraphicsDesc(p.config.VertexShader, p.config.FragmentShader)
	g.VertexBindings = p.config.VertexBindings
	g.VertexAttributes = p.config.VertexAttributes
	g.IntegerTarget = true
	// the picker has no depth attachment
	g.DepthTest = false
	g.DepthWrite = false

	desc := pipeline.Desc{
		Kind:     pipeline.KindGraphics,
		Graphics: g,
		PushConstants: []metadata.PushConstantRange{{
			Stages: metadata.ShaderStageVertex | metadata.ShaderStageFragment,
			Size:   pickerPushSize,
		}},
	}
	if p.config.CameraSetLayout != 0 {
		desc.SetLayouts = []metadata.DescriptorSetLayout{p.config.CameraSetLayout}
	}
	return desc
}

func (p *PickerPass) createTargets() error {
	n := p.ctx.Swapchain.NumImages()
	p.ids = make([]metadata.Attachment, 0, n)
	for i := 0; i < n; i++ {
		a, err := p.ctx.Device.CreateAttachment(metadata.AttachmentCreateInfo{
			Format: metadata.FormatR32Uint,
			Extent: p.extent,
			Usage:  metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferSrc,
			Aspect: metadata.ImageAspectColor,
		})
		if err != nil {
			err = errors.Wrapf(err, "failed to create picker target %d", i)
			core.LogError(err.Error())
			return err
		}
		p.ids = append(p.ids, a)
	}
	return nil
}

func (p *PickerPass) destroyTargets() {
	for _, a := range p.ids {
		p.ctx.Device.DestroyAttachment(a)
	}
	p.ids = nil
}

func (p *PickerPass) renderPassInfo() metadata.RenderPassCreateInfo {
	return metadata.RenderPassCreateInfo{
		ColorAttachments: []metadata.AttachmentDescription{{
			Format:        metadata.FormatR32Uint,
			LoadOp:        metadata.LoadOpClear,
			StoreOp:       metadata.StoreOpStore,
			InitialLayout: metadata.ImageLayoutUndefined,
			// read back with a transfer after the pass
			FinalLayout: metadata.ImageLayoutTransferSrcOptimal,
		}},
	}
}

func (p *PickerPass) framebufferViews(i int) []metadata.ImageView {
	return []metadata.ImageView{p.ids[i].View}
}

// Target returns the id image written for the given swapchain image.
func (p *PickerPass) Target(imageIndex int) metadata.Attachment {
	return p.ids[imageIndex]
}

func (p *PickerPass) Update(dt float64, imageIndex uint32) error {
	return nil
}

func (p *PickerPass) Record(cmd metadata.CommandBuffer, imageIndex uint32) error {
	if err := p.begin(cmd, imageIndex, []metadata.ClearValue{metadata.ClearColorUint(0)}); err != nil {
		return err
	}
	defer cmd.EndRenderPass()

	pl, err := p.pipelines.GetPipeline(PickerPipeline)
	if err != nil {
		return err
	}
	layout, err := p.pipelines.GetLayout(PickerPipeline)
	if err != nil {
		return err
	}
	if p.ctx.Scene == nil {
		return nil
	}
	objects := p.ctx.Scene.Renderables()
	cmd.BindPipeline(metadata.PipelineBindPointGraphics, pl)
	if cameraSet := p.ctx.Scene.CameraSet(); cameraSet != 0 && len(objects) > 0 {
		cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 0, cameraSet)
	}

	for i, obj := range objects {
		if obj.Model == nil {
			continue
		}
		cmd.PushConstants(layout, metadata.ShaderStageVertex|metadata.ShaderStageFragment, 0, pickerPush(obj.Transform, uint32(i)+1))
		obj.Model.Bind(cmd)
		cmd.DrawIndexed(obj.Model.IndexCount(), 1, 0, 0, 0)
	}
	return nil
}

func (p *PickerPass) OnResize(extent metadata.Extent2D) {}

func pickerPush(model mgl32.Mat4, id uint32) []byte {
	buf := make([]byte, pickerPushSize)
	for i, v := range model {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], id)
	return buf
}
