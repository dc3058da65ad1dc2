package domain

import (
	"fmt"
	"strconv"
	"time"
)

// CDR is a single call detail record. Immutable once ingested.
type CDR struct {
	CallerID     string    `json:"callerId"`
	Destination  string    `json:"destination"`
	Duration     float64   `json:"duration"` // seconds
	Timestamp    time.Time `json:"timestamp"`
	OriginRegion string    `json:"originRegion"`
	TargetRegion string    `json:"targetRegion"`
}

// CDRRequest is the ingestion payload for a call detail record.
// The caller may be given as either caller_id or source, and the
// timestamp as epoch seconds or an RFC 3339 string.
type CDRRequest struct {
	CallerID     string `json:"caller_id,omitempty"`
	Source       string `json:"source,omitempty"`
	Destination  string `json:"destination"`
	Duration     float64 `json:"duration"`
	Timestamp    any    `json:"timestamp,omitempty"`
	OriginRegion string `json:"origin_region"`
	TargetRegion string `json:"target_region"`
}

// Validate checks the required ingestion fields. Records failing
// validation are rejected at the boundary; the pipeline assumes
// well-formed input.
func (r *CDRRequest) Validate() error {
	if r.CallerID == "" && r.Source == "" {
		return fmt.Errorf("caller_id or source is required")
	}
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if r.Duration < 0 {
		return fmt.Errorf("duration must be non-negative")
	}
	if r.OriginRegion == "" || r.TargetRegion == "" {
		return fmt.Errorf("origin_region and target_region are required")
	}
	return nil
}

// ToCDR converts a request to a CDR domain object, normalizing the
// timestamp to a time.Time. A missing timestamp defaults to now.
func (r *CDRRequest) ToCDR() (CDR, error) {
	caller := r.CallerID
	if caller == "" {
		caller = r.Source
	}

	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return CDR{}, err
	}

	return CDR{
		CallerID:     caller,
		Destination:  r.Destination,
		Duration:     r.Duration,
		Timestamp:    ts,
		OriginRegion: r.OriginRegion,
		TargetRegion: r.TargetRegion,
	}, nil
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Now().UTC(), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC(), nil
		}
		if epoch, err := strconv.ParseFloat(t, 64); err == nil {
			return time.Unix(int64(epoch), 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
