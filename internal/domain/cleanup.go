package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultPort         = 443
	DefaultAgeThreshold = 45
	DefaultAgeUnit      = UnitDays
)

// TimeUnit is the unit an age threshold is expressed in.
type TimeUnit string

const (
	UnitHours  TimeUnit = "hours"
	UnitDays   TimeUnit = "days"
	UnitWeeks  TimeUnit = "weeks"
	UnitMonths TimeUnit = "months"
)

// Months are a fixed 30 days, the same block curator uses for its
// point-of-reference arithmetic.
var unitSeconds = map[TimeUnit]int64{
	UnitHours:  3600,
	UnitDays:   86400,
	UnitWeeks:  604800,
	UnitMonths: 2592000,
}

func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := unitSeconds[u]; !ok {
		return "", fmt.Errorf("must be one of hours, days, weeks, months, got %q", s)
	}
	return u, nil
}

// Duration saturates at the largest time.Duration instead of wrapping.
func (u TimeUnit) Duration(count int) time.Duration {
	secs := unitSeconds[u]
	if secs == 0 || count <= 0 {
		return 0
	}
	if int64(count) > math.MaxInt64/int64(time.Second)/secs {
		return math.MaxInt64
	}
	return time.Duration(secs*int64(count)) * time.Second
}

// earliestStamp is the oldest date a YYYY.MM.DD stamp can carry.
var earliestStamp = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)

// RequestParams is the raw, caller-supplied configuration. Port and
// AgeThreshold are pointers so that an explicit 0 is told apart from an
// absent value.
type RequestParams struct {
	Host         string
	Port         *int
	AgeThreshold *int
	AgeUnit      string
	IndexPrefix  string
	Strict       bool
	DryRun       bool
}

// CleanupRequest is a validated cleanup configuration. Build it with
// NewCleanupRequest.
type CleanupRequest struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AgeThreshold int      `json:"unit_count"`
	AgeUnit      TimeUnit `json:"time_unit"`
	IndexPrefix  string   `json:"index_prefix,omitempty"`
	Strict       bool     `json:"strict,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

func NewCleanupRequest(p RequestParams) (CleanupRequest, error) {
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return CleanupRequest{}, InvalidField("host", "is required")
	}
	if strings.Contains(host, "://") || strings.ContainsAny(host, "/ ") {
		return CleanupRequest{}, InvalidField("host", fmt.Sprintf("must be a bare host name, got %q", p.Host))
	}

	port := DefaultPort
	if p.Port != nil {
		port = *p.Port
	}
	if port < 1 || port > 65535 {
		return CleanupRequest{}, InvalidField("port", fmt.Sprintf("must be between 1 and 65535, got %d", port))
	}

	threshold := DefaultAgeThreshold
	if p.AgeThreshold != nil {
		threshold = *p.AgeThreshold
	}
	if threshold < 0 {
		return CleanupRequest{}, InvalidField("unit_count", fmt.Sprintf("must not be negative, got %d", threshold))
	}

	unit := DefaultAgeUnit
	if p.AgeUnit != "" {
		u, err := ParseTimeUnit(p.AgeUnit)
		if err != nil {
			return CleanupRequest{}, InvalidField("time_unit", err.Error())
		}
		unit = u
	}

	return CleanupRequest{
		Host:         host,
		Port:         port,
		AgeThreshold: threshold,
		AgeUnit:      unit,
		IndexPrefix:  p.IndexPrefix,
		Strict:       p.Strict,
		DryRun:       p.DryRun,
	}, nil
}

// Cutoff returns the instant an index date must be strictly before to be
// eligible for deletion. Thresholds reaching past year 0 clamp to
// earliestStamp, so no index qualifies.
func (r CleanupRequest) Cutoff(now time.Time) time.Time {
	d := r.AgeUnit.Duration(r.AgeThreshold)
	if d < math.MaxInt64 {
		return now.Add(-d)
	}

	secs := unitSeconds[r.AgeUnit]
	span := now.Unix() - earliestStamp.Unix()
	if span <= 0 || int64(r.AgeThreshold) > span/secs {
		return earliestStamp
	}
	return time.Unix(now.Unix()-int64(r.AgeThreshold)*secs, int64(now.Nanosecond())).In(now.Location())
}

func (r CleanupRequest) String() string {
	return fmt.Sprintf("%s:%d older than %d %s", r.Host, r.Port, r.AgeThreshold, r.AgeUnit)
}

// CleanupResult is the externally observable outcome of one run.
type CleanupResult struct {
	Changed        bool
	DeletedIndices []string
	DryRun         bool
}

func NewCleanupResult(deleted []string, dryRun bool) CleanupResult {
	if deleted == nil {
		deleted = []string{}
	}
	return CleanupResult{
		Changed:        len(deleted) > 0 && !dryRun,
		DeletedIndices: deleted,
		DryRun:         dryRun,
	}
}

func (r CleanupResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Changed bool     `json:"changed"`
		Index   []string `json:"index"`
		DryRun  bool     `json:"dry_run,omitempty"`
		Msg     string   `json:"msg,omitempty"`
	}{
		Changed: r.Changed,
		Index:   r.DeletedIndices,
		DryRun:  r.DryRun,
	}
	if out.Index == nil {
		out.Index = []string{}
	}
	if len(out.Index) == 0 {
		out.Msg = MsgNoIndices
	}
	return json.Marshal(out)
}
