package listener

import (
	"siakad/internal/schedule"
	logx "siakad/pkg/logx"
)

// RoleLogger announces every schedule event to one audience role.
// It is the in-process stand-in for the per-role notification channels
// (student portal banner, lecturer mail, admin console).
type RoleLogger struct {
	role string
	log  logx.Logger
}

func NewRoleLogger(role string, log logx.Logger) *RoleLogger {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &RoleLogger{role: role, log: log.With(logx.String("audience", role))}
}

func (l *RoleLogger) Role() string { return l.role }

func (l *RoleLogger) HandleScheduleEvent(e schedule.Event) error {
	l.log.Info("schedule "+string(e.Kind),
		logx.String("session", e.Session.Code),
		logx.String("course", e.Session.CourseName),
		logx.String("day", e.Session.Day.String()),
		logx.String("time", e.Session.Start.String()+"-"+e.Session.End.String()),
		logx.String("room", e.Session.Room),
		logx.String("instructor", e.Session.Instructor))
	return nil
}
