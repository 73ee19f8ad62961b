package element

import (
	"corestream/pad"
	"corestream/pullbuffer"
)

// metricFor maps a pad's declared DemandUnit to the pullbuffer.Metric that
// counts it, the callback PadSet needs to size credit-based PullBuffers.
func metricFor(u pad.DemandUnit) pullbuffer.Metric {
	if u == pad.Bytes {
		return pullbuffer.ByteMetric{}
	}
	return pullbuffer.BufferMetric{}
}
