package element

import "corestream/telemetry"

func linkEvent(elementName string, ref interface{ String() string }) telemetry.Event {
	return telemetry.Event{Kind: "link.new", Element: elementName, Ref: ref.String()}
}

func lifecycleEvent(kind, elementName string) telemetry.Event {
	return telemetry.Event{Kind: kind, Element: elementName}
}

func metricValueEvent(elementName, ref string, value float64) telemetry.Event {
	return telemetry.Event{Kind: "metric.value", Element: elementName, Ref: ref, Fields: map[string]any{"value": value}}
}
