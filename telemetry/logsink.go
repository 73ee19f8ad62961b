package telemetry

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"corestream/internal/elog"
)

// LogSink mirrors telemetry events to the stdlib logger used everywhere
// else in corestream, bracket-prefixed the same way. A single token-bucket
// limiter, shared by all event kinds, caps how many events are actually
// printed, so a hot metric.value stream does not flood stderr the way an
// unthrottled per-buffer log line would. The limit is not kept per kind: a
// burst of one kind uses up the allowance for every other kind too.
type LogSink struct {
	log     elog.Logger
	limiter *rate.Limiter
}

// NewLogSink returns a LogSink that allows up to ratePerSec log lines per
// second across all event kinds together, bursting up to burst.
func NewLogSink(ratePerSec float64, burst int) *LogSink {
	return &LogSink{
		log:     elog.New("telemetry"),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

func (s *LogSink) Emit(e Event) {
	if !s.limiter.AllowN(time.Now(), 1) {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s element=%s", e.Kind, e.Element)
	if e.Ref != "" {
		fmt.Fprintf(&b, " ref=%s", e.Ref)
	}
	for k, v := range e.Fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	s.log.Println(b.String())
}
