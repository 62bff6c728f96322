package pass

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

// DrawStats counts the state changes and draws issued by DrawObjects.
type DrawStats struct {
	PipelineBinds int
	CameraBinds   int
	MaterialBinds int
	Draws         int
}

// DrawObjects records objects in the order given. Set 0 is bound once up
// front with the first object's layout and again whenever the pipeline
// changes; materials bind set 1 through a shared last-bound cache. Objects
// are not sorted, so alternating pipelines cost a bind each time.
func DrawObjects(cmd metadata.CommandBuffer, pipelines *pipeline.Manager, objects []metadata.Renderable, cameraSet metadata.DescriptorSet) (DrawStats, error) {
	var stats DrawStats
	if len(objects) == 0 {
		return stats, nil
	}

	if cameraSet != 0 {
		layout, err := pipelines.GetLayout(objects[0].Material.PipelineName())
		if err != nil {
			return stats, err
		}
		cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 0, cameraSet)
		stats.CameraBinds++
	}

	var lastPipeline metadata.Pipeline
	var lastMaterialSet metadata.DescriptorSet

	for i, obj := range objects {
		if obj.Material == nil {
			return stats, errors.Newf("object %d has no material", i)
		}
		name := obj.Material.PipelineName()
		p, err := pipelines.GetPipeline(name)
		if err != nil {
			return stats, err
		}
		layout, err := pipelines.GetLayout(name)
		if err != nil {
			return stats, err
		}

		if p != lastPipeline {
			cmd.BindPipeline(metadata.PipelineBindPointGraphics, p)
			lastPipeline = p
			stats.PipelineBinds++
			// set 0 bindings do not survive a layout change
			if cameraSet != 0 {
				cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 0, cameraSet)
				stats.CameraBinds++
			}
		}

		before := lastMaterialSet
		if err := obj.Material.Draw(cmd, layout, &lastMaterialSet, obj.Model, obj.Transform); err != nil {
			return stats, errors.Wrapf(err, "failed to draw object %d", i)
		}
		if lastMaterialSet != before {
			stats.MaterialBinds++
		}
		stats.Draws++
	}
	return stats, nil
}
