// Package digest announces the day's timetable on a schedule of its
// own: a cron-driven summary of every session planned for the current
// weekday.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"siakad/internal/schedule"
	logx "siakad/pkg/logx"
)

// Config controls the digest service.
type Config struct {
	Enabled  bool
	At       string // cron expression or "HH:MM" (daily at)
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log logx.Logger
	reg *schedule.Registry

	parser cron.Parser
	c      *cron.Cron
}

func New(cfg Config, reg *schedule.Registry, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		reg: reg,
		// SecondOptional allows both 5-field and 6-field cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Validate checks cfg without touching the running service. Used by
// the config-reload validator so a bad spec never reaches Apply.
func (s *Service) Validate(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	if _, err := s.cronSpec(cfg.At); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("digest.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}

// Start launches the cron loop. It is a no-op when disabled or
// already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}
	return s.startLocked(ctx)
}

func (s *Service) startLocked(_ context.Context) error {
	spec, err := s.cronSpec(s.cfg.At)
	if err != nil {
		return err
	}
	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest.timezone: invalid %q: %w", tz, err)
		}
		loc = l
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { s.Announce(time.Now().In(loc)) }); err != nil {
		return fmt.Errorf("digest.at: %w", err)
	}
	c.Start()
	s.c = c
	s.log.Debug("digest started", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Apply restarts the cron loop when the config changed. Safe to call
// whether or not the service is running.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	if cfg == s.cfg {
		s.mu.Unlock()
		return nil
	}
	c := s.c
	s.c = nil
	s.cfg = cfg
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !cfg.Enabled {
		return nil
	}
	return s.startLocked(ctx)
}

// Announce logs the digest for the weekday of now.
func (s *Service) Announce(now time.Time) {
	day := schedule.DayOf(now.Weekday())
	sessions := s.Plan(day)
	log := s.log.With(logx.String("day", day.String()), logx.Time("at", now))
	if len(sessions) == 0 {
		log.Info("daily digest: no sessions scheduled")
		return
	}
	log.Info("daily digest", logx.Int("sessions", len(sessions)))
	for _, sess := range sessions {
		log.Info("digest entry",
			logx.String("time", sess.Start.String()+"-"+sess.End.String()),
			logx.String("session", sess.Code),
			logx.String("course", sess.CourseName),
			logx.String("room", sess.Room),
			logx.String("instructor", sess.Instructor))
	}
}

// Plan returns the registry's sessions for one day, ordered by start
// time (registration order breaks ties).
func (s *Service) Plan(day schedule.Day) []schedule.Session {
	var out []schedule.Session
	for _, sess := range s.reg.Snapshot() {
		if sess.Day == day {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// cronSpec normalizes the At field: "HH:MM" becomes a daily cron
// entry, anything else must already be a valid cron expression.
func (s *Service) cronSpec(raw string) (string, error) {
	at := strings.TrimSpace(raw)
	if at == "" {
		return "", fmt.Errorf("digest.at is required when digest is enabled")
	}
	if c, err := schedule.ParseClock(at); err == nil {
		return fmt.Sprintf("%d %d * * *", c.Minute(), c.Hour()), nil
	}
	if _, err := s.parser.Parse(at); err != nil {
		return "", fmt.Errorf("digest.at: invalid spec %q: %w", raw, err)
	}
	return at, nil
}
