package app

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"

	"siakad/internal/schedule"
)

// Seed files let operators pre-load a timetable at startup:
//
//	sessions:
//	  - code: J001
//	    course: Kalkulus I
//	    day: monday
//	    start: "08:00"
//	    end: "10:00"
//	    room: A101
//	    instructor: Budi
//	    capacity: 40
type seedFile struct {
	Sessions []seedSession `yaml:"sessions"`
}

type seedSession struct {
	Code       string `yaml:"code"`
	Course     string `yaml:"course"`
	Day        string `yaml:"day"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
	Room       string `yaml:"room"`
	Instructor string `yaml:"instructor"`
	Capacity   int    `yaml:"capacity"`
}

// LoadSeed parses a seed file into validated sessions. A bad entry
// fails the whole load; half-applied seeds are worse than none.
func LoadSeed(path string) ([]schedule.Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}

	out := make([]schedule.Session, 0, len(sf.Sessions))
	for i, raw := range sf.Sessions {
		if raw.Code == "" {
			return nil, fmt.Errorf("seed %s: sessions[%d]: code is required", path, i)
		}
		day, err := schedule.ParseDay(raw.Day)
		if err != nil {
			return nil, fmt.Errorf("seed %s: sessions[%d]: %w", path, i, err)
		}
		start, err := schedule.ParseClock(raw.Start)
		if err != nil {
			return nil, fmt.Errorf("seed %s: sessions[%d]: %w", path, i, err)
		}
		end, err := schedule.ParseClock(raw.End)
		if err != nil {
			return nil, fmt.Errorf("seed %s: sessions[%d]: %w", path, i, err)
		}
		s, err := schedule.NewSession(raw.Code, raw.Course, day, start, end, raw.Room, raw.Instructor, raw.Capacity)
		if err != nil {
			return nil, fmt.Errorf("seed %s: sessions[%d]: %w", path, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
