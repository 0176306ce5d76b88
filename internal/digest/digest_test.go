package digest

import (
	"context"
	"strings"
	"testing"

	"siakad/internal/schedule"
	"siakad/pkg/logx"
)

func TestCronSpec(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, logx.Nop())
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "07:00", want: "0 7 * * *"},
		{in: "16:30", want: "30 16 * * *"},
		{in: " 08:15 ", want: "15 8 * * *"},
		{in: "0 7 * * *", want: "0 7 * * *"},
		{in: "0 0 7 * * *", want: "0 0 7 * * *"}, // six fields, seconds allowed
		{in: "@daily", want: "@daily"},
		{in: "", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "seven am", wantErr: true},
	}
	for _, tc := range cases {
		got, err := s.cronSpec(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("cronSpec(%q): no error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("cronSpec(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("cronSpec(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, logx.Nop())
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "disabled ignores bad fields", cfg: Config{Enabled: false, At: "garbage", Timezone: "Nowhere"}},
		{name: "valid clock", cfg: Config{Enabled: true, At: "07:00"}},
		{name: "valid cron with tz", cfg: Config{Enabled: true, At: "0 7 * * 1-5", Timezone: "Asia/Jakarta"}},
		{name: "missing at", cfg: Config{Enabled: true}, wantErr: "digest.at"},
		{name: "bad spec", cfg: Config{Enabled: true, At: "when convenient"}, wantErr: "digest.at"},
		{name: "bad timezone", cfg: Config{Enabled: true, At: "07:00", Timezone: "Mars/Olympus"}, wantErr: "digest.timezone"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := s.Validate(tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestPlanFiltersAndSorts(t *testing.T) {
	t.Parallel()

	reg := schedule.NewRegistry(nil)
	add := func(code string, day schedule.Day, start, end, room, instr string) {
		t.Helper()
		s, err := schedule.NewSession(code, code, day, schedule.MustClock(start), schedule.MustClock(end), room, instr, 0)
		if err != nil {
			t.Fatalf("NewSession(%s): %v", code, err)
		}
		if err := reg.Create(s); err != nil {
			t.Fatalf("Create(%s): %v", code, err)
		}
	}
	add("J003", schedule.Monday, "13:00", "15:00", "C303", "Citra")
	add("J001", schedule.Monday, "08:00", "10:00", "A101", "Budi")
	add("J002", schedule.Tuesday, "09:00", "11:00", "A101", "Ani")
	add("J004", schedule.Monday, "10:00", "12:00", "B202", "Dewi")

	s := New(Config{}, reg, logx.Nop())
	got := s.Plan(schedule.Monday)
	want := []string{"J001", "J004", "J003"}
	if len(got) != len(want) {
		t.Fatalf("Plan returned %d sessions, want %d", len(got), len(want))
	}
	for i, code := range want {
		if got[i].Code != code {
			t.Fatalf("Plan order = [%s %s %s], want %v", got[0].Code, got[1].Code, got[2].Code, want)
		}
	}

	if extra := s.Plan(schedule.Sunday); len(extra) != 0 {
		t.Fatalf("Plan(Sunday) returned %d sessions, want 0", len(extra))
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: false, At: "not a spec"}, schedule.NewRegistry(nil), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start on disabled service: %v", err)
	}
	s.Stop()
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, At: "07:00", Timezone: "Asia/Jakarta"}, schedule.NewRegistry(nil), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Idempotent while running.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestApplyRestartsWithNewConfig(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, At: "07:00"}, schedule.NewRegistry(nil), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Apply(context.Background(), Config{Enabled: true, At: "08:00"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(context.Background(), Config{Enabled: false}); err != nil {
		t.Fatalf("Apply disable: %v", err)
	}
	if s.Enabled() {
		t.Fatal("service still enabled after disabling Apply")
	}
	// Bad spec surfaces as an error and leaves the service stopped.
	if err := s.Apply(context.Background(), Config{Enabled: true, At: "nope"}); err == nil {
		t.Fatal("Apply accepted an invalid spec")
	}
}
