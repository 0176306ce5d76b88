package notify

import (
	"context"

	"siakad/internal/schedule"
	logx "siakad/pkg/logx"
)

// LogSink renders events to the structured log. It stands in for the
// external presentation layer (console feed, UI toast) at the process
// boundary.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, e schedule.Event) error {
	s.log.Info("schedule "+string(e.Kind),
		logx.String("id", e.ID.String()),
		logx.String("session", e.Session.Code),
		logx.String("course", e.Session.CourseName),
		logx.String("day", e.Session.Day.String()),
		logx.String("start", e.Session.Start.String()),
		logx.String("end", e.Session.End.String()),
		logx.String("room", e.Session.Room),
		logx.String("instructor", e.Session.Instructor))
	return nil
}
