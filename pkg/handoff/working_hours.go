package handoff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/logger"
)

// WorkingHours is a region's parsed agent schedule. Minutes are
// counted from local midnight; boundaries are inclusive on both ends.
type WorkingHours struct {
	StartMin int
	EndMin   int
	Location *time.Location
	WorkDays map[time.Weekday]bool
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// ParseWorkingHours validates and compiles a region's on-disk config.
func ParseWorkingHours(rc config.RegionConfig) (*WorkingHours, error) {
	start, err := parseClock(rc.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(rc.End)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("working hours end %q before start %q", rc.End, rc.Start)
	}
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", rc.Timezone, err)
	}
	days := make(map[time.Weekday]bool, len(rc.WorkDays))
	for _, d := range rc.WorkDays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %d", d)
		}
		days[time.Weekday(d)] = true
	}
	return &WorkingHours{StartMin: start, EndMin: end, Location: loc, WorkDays: days}, nil
}

// InHours reports whether t falls inside the schedule. Both the start
// and end minute count as in-hours.
func (w *WorkingHours) InHours(t time.Time) bool {
	local := t.In(w.Location)
	if !w.WorkDays[local.Weekday()] {
		return false
	}
	min := local.Hour()*60 + local.Minute()
	return min >= w.StartMin && min <= w.EndMin
}

// InStartGrace reports whether t is within grace after the shift
// start on a workday: the "shift just started" window the sweep
// promotes in.
func (w *WorkingHours) InStartGrace(t time.Time, grace time.Duration) bool {
	local := t.In(w.Location)
	if !w.WorkDays[local.Weekday()] {
		return false
	}
	min := local.Hour()*60 + local.Minute()
	return min >= w.StartMin && min <= w.StartMin+int(grace.Minutes())
}

// HoursResolver resolves a region id to its compiled working hours,
// caching results with a short TTL so dashboard edits to a region's
// schedule take effect without a restart but the per-message hot path
// stays cheap.
type HoursResolver struct {
	cfg   *config.Config
	cache *expirable.LRU[string, *WorkingHours]
}

func NewHoursResolver(cfg *config.Config) *HoursResolver {
	ttl := time.Duration(cfg.Handoff.WorkingHoursTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HoursResolver{
		cfg:   cfg,
		cache: expirable.NewLRU[string, *WorkingHours](64, nil, ttl),
	}
}

// Resolve returns the region's working hours, falling back to the
// default region for unknown ids.
func (r *HoursResolver) Resolve(regionID string) (*WorkingHours, error) {
	if regionID == "" {
		regionID = r.cfg.Handoff.DefaultRegion
	}
	if hours, ok := r.cache.Get(regionID); ok {
		return hours, nil
	}

	rc, ok := r.cfg.Handoff.Regions[regionID]
	if !ok {
		fallback := r.cfg.Handoff.DefaultRegion
		rc, ok = r.cfg.Handoff.Regions[fallback]
		if !ok {
			return nil, fmt.Errorf("no working hours for region %q or default %q", regionID, fallback)
		}
		logger.WarnCF("handoff", "Unknown region, using default working hours",
			map[string]any{"region_id": regionID, "default": fallback})
	}

	hours, err := ParseWorkingHours(rc)
	if err != nil {
		return nil, err
	}
	r.cache.Add(regionID, hours)
	return hours, nil
}
