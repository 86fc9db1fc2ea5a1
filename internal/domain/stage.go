package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage is a named point before a deadline at which a reminder may fire.
type Stage struct {
	Name         string        `json:"name"`
	Offset       time.Duration `json:"offset"`
	Tolerance    time.Duration `json:"tolerance"`
	MarkerExpiry time.Duration `json:"marker_expiry"`
}

// Target is the instant the stage is aimed at for the given deadline.
func (s Stage) Target(deadline time.Time) time.Time {
	return deadline.Add(-s.Offset)
}

// DueAt reports whether now lies inside the stage's tolerance window.
func (s Stage) DueAt(now, deadline time.Time) bool {
	delta := now.Sub(s.Target(deadline))
	if delta < 0 {
		delta = -delta
	}
	return delta <= s.Tolerance
}

// StageList is the textual form of the stage table:
//
//	name:offset:tolerance:markerExpiry[,name:offset:tolerance:markerExpiry...]
type StageList []Stage

func (l *StageList) UnmarshalText(text []byte) error {
	var out StageList
	for _, raw := range strings.Split(string(text), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 4 {
			return fmt.Errorf("stage %q: want name:offset:tolerance:expiry", raw)
		}
		var ds [3]time.Duration
		for i, p := range parts[1:] {
			d, err := time.ParseDuration(strings.TrimSpace(p))
			if err != nil {
				return fmt.Errorf("stage %q: %w", raw, err)
			}
			ds[i] = d
		}
		out = append(out, Stage{
			Name:         strings.TrimSpace(parts[0]),
			Offset:       ds[0],
			Tolerance:    ds[1],
			MarkerExpiry: ds[2],
		})
	}
	*l = out
	return nil
}

func (l StageList) String() string {
	parts := make([]string, 0, len(l))
	for _, s := range l {
		parts = append(parts, fmt.Sprintf("%s:%s:%s:%s", s.Name, s.Offset, s.Tolerance, s.MarkerExpiry))
	}
	return strings.Join(parts, ",")
}

// StageTable is the read-only, process-wide set of reminder stages.
type StageTable struct {
	stages []Stage
	byName map[string]Stage
}

func NewStageTable(stages []Stage) (*StageTable, error) {
	if len(stages) == 0 {
		return nil, errors.New("stage table is empty")
	}
	t := &StageTable{byName: make(map[string]Stage, len(stages))}
	for _, s := range stages {
		switch {
		case s.Name == "":
			return nil, errors.New("stage with empty name")
		case s.Offset <= 0:
			return nil, fmt.Errorf("stage %q: offset must be positive", s.Name)
		case s.Tolerance <= 0:
			return nil, fmt.Errorf("stage %q: tolerance must be positive", s.Name)
		case s.MarkerExpiry < s.Tolerance:
			return nil, fmt.Errorf("stage %q: marker expiry %s shorter than tolerance %s", s.Name, s.MarkerExpiry, s.Tolerance)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		t.byName[s.Name] = s
		t.stages = append(t.stages, s)
	}
	return t, nil
}

func (t *StageTable) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

func (t *StageTable) Lookup(name string) (Stage, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Due returns every stage whose window contains now.
func (t *StageTable) Due(now, deadline time.Time) []Stage {
	var due []Stage
	for _, s := range t.stages {
		if s.DueAt(now, deadline) {
			due = append(due, s)
		}
	}
	return due
}

// Horizon is the furthest deadline a scan has to look at so that every
// stage window is reachable.
func (t *StageTable) Horizon() time.Duration {
	var h time.Duration
	for _, s := range t.stages {
		h = max(h, s.Offset+s.Tolerance)
	}
	return h
}

// NarrowerThan lists stages whose whole window is shorter than period;
// a scanner running at that period can step over them.
func (t *StageTable) NarrowerThan(period time.Duration) []Stage {
	var out []Stage
	for _, s := range t.stages {
		if 2*s.Tolerance < period {
			out = append(out, s)
		}
	}
	return out
}
