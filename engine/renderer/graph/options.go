package graph

import (
	"time"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

const DefaultFramesInFlight = 2

type Options struct {
	FramesInFlight int
	// FenceTimeout bounds every fence wait, in nanoseconds. An expired wait
	// is reported as a lost device.
	FenceTimeout   uint64
	AcquireTimeout uint64
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		FramesInFlight: DefaultFramesInFlight,
		FenceTimeout:   metadata.InfiniteTimeout,
		AcquireTimeout: metadata.InfiniteTimeout,
	}
}

func WithFramesInFlight(n int) Option {
	return func(o *Options) {
		o.FramesInFlight = n
	}
}

// WithFenceTimeout bounds fence waits. Zero or negative keeps them unbounded.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d <= 0 {
			o.FenceTimeout = metadata.InfiniteTimeout
			return
		}
		o.FenceTimeout = uint64(d.Nanoseconds())
	}
}
