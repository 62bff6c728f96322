package core

import "sync"

const AVG_COUNT uint8 = 30

type MetricsState struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64

	// Draw statistics of the last recorded frame.
	PipelineBinds uint32
	DrawCalls     uint32
	Recreations   uint64
}

var (
	metricsMu    sync.Mutex
	metricsState = &MetricsState{}
)

// MetricsInitialize resets all counters.
func MetricsInitialize() error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState = &MetricsState{
		MStimes: [AVG_COUNT]float64{0},
	}
	return nil
}

func MetricsUpdate(frameElapsedTime float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	// Calculate frame ms average
	frameMS := (frameElapsedTime * 1000.0)
	metricsState.MStimes[metricsState.FrameAVGCounter] = frameMS
	if metricsState.FrameAVGCounter == AVG_COUNT-1 {
		metricsState.MSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			metricsState.MSavg += metricsState.MStimes[i]
		}

		metricsState.MSavg /= float64(AVG_COUNT)
	}
	metricsState.FrameAVGCounter++
	metricsState.FrameAVGCounter %= AVG_COUNT

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

// MetricsRecordDraws stores the bind/draw counts of the frame just recorded.
func MetricsRecordDraws(pipelineBinds, drawCalls uint32) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState.PipelineBinds = pipelineBinds
	metricsState.DrawCalls = drawCalls
}

// MetricsRecordRecreate counts one swapchain recreation.
func MetricsRecordRecreate() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState.Recreations++
}

func MetricsFPS() float64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return metricsState.FPS, metricsState.MSavg
}

// MetricsSnapshot returns a copy of the current metrics.
func MetricsSnapshot() MetricsState {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return *metricsState
}
