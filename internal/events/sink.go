package events

import "log/slog"

// LogSink writes telemetry events to the structured log. It stands in for a
// hosted telemetry backend; swap implementations behind Sink to change that.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) TrackEvent(name string, properties map[string]string) {
	attrs := make([]any, 0, 2+2*len(properties))
	attrs = append(attrs, "event", name)
	for k, v := range properties {
		attrs = append(attrs, k, v)
	}
	s.logger.Info("telemetry", attrs...)
}
