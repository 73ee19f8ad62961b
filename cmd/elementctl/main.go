// Command elementctl assembles a small demonstration pipeline — a tone
// source, a passthrough filter, and a counting sink, linked source -> filter
// -> sink — and exposes its running state over a debug HTTP surface, per
// SPEC_FULL.md §6. It exists to give every package in this module a live
// caller: a real wiring of Runtime, PadSet, PullBuffer and telemetry rather
// than a library nobody ever calls.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"corestream/clock"
	"corestream/element"
	"corestream/pad"
	"corestream/telemetry"
)

func main() {
	if len(os.Args) > 1 && RunCLI(os.Args[1:]) {
		return
	}

	debugAddr := flag.String("debug-addr", ":9090", "debug HTTP server listen address (empty to disable)")
	tickInterval := flag.Duration("tick-interval", 500*time.Millisecond, "tone source emission interval")
	enableTelemetry := flag.Bool("enable-telemetry", true, "emit telemetry to the log sink and Prometheus")
	telemetryRate := flag.Float64("telemetry-log-rate", 5, "max telemetry log lines per second, across all event kinds")
	flag.Parse()

	log.Printf("[elementctl] %s starting", Version)

	var promReg *prometheus.Registry
	var sink telemetry.Sink = telemetry.Nop{}
	if *enableTelemetry {
		promReg = prometheus.NewRegistry()
		sink = telemetry.Multi{
			telemetry.NewLogSink(*telemetryRate, int(*telemetryRate)*2+1),
			telemetry.NewPromSink(promReg),
		}
	}

	registry := element.NewRegistry()
	clk := clock.New("elementctl")

	toneBehavior := newToneSource(*tickInterval, clk)
	filterBehavior := &passthroughFilter{}
	sinkBehavior := &counterSink{}

	source, err := element.NewRuntime(element.Options{
		Name:      "source",
		Behavior:  toneBehavior,
		Pads:      toneBehavior.pads(),
		Registry:  registry,
		Telemetry: sink,
	})
	if err != nil {
		log.Fatalf("[elementctl] source init: %v", err)
	}
	filter, err := element.NewRuntime(element.Options{
		Name:      "filter",
		Behavior:  filterBehavior,
		Pads:      filterBehavior.pads(),
		Registry:  registry,
		Telemetry: sink,
	})
	if err != nil {
		log.Fatalf("[elementctl] filter init: %v", err)
	}
	sink2, err := element.NewRuntime(element.Options{
		Name:      "sink",
		Behavior:  sinkBehavior,
		Pads:      sinkBehavior.pads(),
		Registry:  registry,
		Telemetry: sink,
	})
	if err != nil {
		log.Fatalf("[elementctl] sink init: %v", err)
	}

	source.Start()
	filter.Start()
	sink2.Start()

	if _, err := filter.Link("sink", source.Address(), pad.StaticRef("src")); err != nil {
		log.Fatalf("[elementctl] link source->filter: %v", err)
	}
	if _, err := sink2.Link("sink", filter.Address(), pad.StaticRef("src")); err != nil {
		log.Fatalf("[elementctl] link filter->sink: %v", err)
	}

	for _, rt := range []*element.Runtime{sink2, filter, source} {
		if err := rt.SetPlayback(element.Prepared); err != nil {
			log.Fatalf("[elementctl] prepare %s: %v", rt.Address().Name(), err)
		}
	}
	for _, rt := range []*element.Runtime{sink2, filter, source} {
		if err := rt.SetPlayback(element.Playing); err != nil {
			log.Fatalf("[elementctl] play %s: %v", rt.Address().Name(), err)
		}
	}
	log.Printf("[elementctl] pipeline playing: source -> filter -> sink")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[elementctl] shutting down...")
		cancel()
	}()

	go RunMetrics(ctx, sinkBehavior, 5*time.Second)

	if *debugAddr != "" {
		srv := newDebugServer(registry, promReg)
		srv.Run(ctx, *debugAddr)
	} else {
		<-ctx.Done()
	}

	for _, rt := range []*element.Runtime{source, filter, sink2} {
		rt.Stop()
	}
}
