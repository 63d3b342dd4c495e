package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is wrapped by every Parse failure.
var ErrMalformedPayload = errors.New("malformed snapshot payload")

// Snapshot is the complete, normalized set of metrics, severities and
// review data displayed for one refresh cycle. Build one with Normalize or
// Parse; a Snapshot obtained that way never has nil measures.
type Snapshot struct {
	MasterSeverity Value       `json:"masterSeverity"`
	Metrics        Metrics     `json:"metrics"`
	Analytics      Analytics   `json:"analytics"`
	SonarSeverity  Value       `json:"sonarSeverity"`
	Complexity     Value       `json:"complexity"`
	CommitDiff     *CommitDiff `json:"commitDiff,omitempty"`
}

type Metrics struct {
	Component Component `json:"component"`
}

type Component struct {
	Measures []Measure `json:"measures"`
}

type Measure struct {
	Metric string  `json:"metric"`
	Value  Value   `json:"value"`
	Period *Period `json:"period,omitempty"`
}

type Period struct {
	Value Value `json:"value"`
}

type Analytics struct {
	Reviews          Reviews `json:"reviews"`
	ResultSeverities Value   `json:"resultSeverities"`
	ReviewSeverities Value   `json:"reviewSeverities"`
}

type CommitDiff struct {
	Diff string `json:"diff"`
}

// Payload is the partial wire shape of a snapshot. Any field may be
// missing.
type Payload struct {
	MasterSeverity *Value             `json:"masterSeverity"`
	Metrics        *MetricsPayload    `json:"metrics"`
	Analytics      *AnalyticsPayload  `json:"analytics"`
	SonarSeverity  *Value             `json:"sonarSeverity"`
	Complexity     *Value             `json:"complexity"`
	CommitDiff     *CommitDiffPayload `json:"commitDiff"`
}

type MetricsPayload struct {
	Component *ComponentPayload `json:"component"`
}

type ComponentPayload struct {
	Measures []*Measure `json:"measures"`
}

type AnalyticsPayload struct {
	Reviews          *Reviews `json:"reviews"`
	ResultSeverities *Value   `json:"resultSeverities"`
	ReviewSeverities *Value   `json:"reviewSeverities"`
}

type CommitDiffPayload struct {
	Diff *string `json:"diff"`
}

const defaultSeverity = "0"

// Default returns the snapshot shown before any data has arrived.
func Default() Snapshot {
	return Snapshot{
		MasterSeverity: Text(defaultSeverity),
		Metrics: Metrics{
			Component: Component{Measures: []Measure{}},
		},
		Analytics: Analytics{
			Reviews:          Reviews{},
			ResultSeverities: Text(defaultSeverity),
			ReviewSeverities: Text(defaultSeverity),
		},
		SonarSeverity: Text(defaultSeverity),
		Complexity:    Text(defaultSeverity),
	}
}

// Normalize fills every field missing from p with its default value.
func Normalize(p *Payload) Snapshot {
	s := Default()
	if p == nil {
		return s
	}

	if p.MasterSeverity != nil {
		s.MasterSeverity = *p.MasterSeverity
	}
	if p.SonarSeverity != nil {
		s.SonarSeverity = *p.SonarSeverity
	}
	if p.Complexity != nil {
		s.Complexity = *p.Complexity
	}

	if p.Metrics != nil && p.Metrics.Component != nil {
		for _, m := range p.Metrics.Component.Measures {
			if m == nil {
				continue
			}
			measure := *m
			if m.Period != nil {
				period := *m.Period
				measure.Period = &period
			}
			s.Metrics.Component.Measures = append(s.Metrics.Component.Measures, measure)
		}
	}

	if a := p.Analytics; a != nil {
		if a.Reviews != nil {
			s.Analytics.Reviews = *a.Reviews
		}
		if a.ResultSeverities != nil {
			s.Analytics.ResultSeverities = *a.ResultSeverities
		}
		if a.ReviewSeverities != nil {
			s.Analytics.ReviewSeverities = *a.ReviewSeverities
		}
	}

	if p.CommitDiff != nil {
		s.CommitDiff = &CommitDiff{}
		if p.CommitDiff.Diff != nil {
			s.CommitDiff.Diff = *p.CommitDiff.Diff
		}
	}

	return s
}

// Parse decodes a JSON message or response body and normalizes it. An
// empty body or a JSON null yields the default snapshot.
func Parse(data []byte) (Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Default(), nil
	}
	if data[0] != '{' && !bytes.Equal(data, []byte("null")) {
		return Snapshot{}, fmt.Errorf("%w: body is not a JSON object", ErrMalformedPayload)
	}

	var p *Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return Normalize(p), nil
}

// UnmarshalJSON decodes a possibly partial snapshot and fills in the
// defaults, so a Snapshot decoded from a cache file or an API response is
// always normalized.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var p *Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	*s = Normalize(p)
	return nil
}

// Clone returns a deep copy so callers can hand snapshots across
// goroutines without sharing slices.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Metrics.Component.Measures = make([]Measure, len(s.Metrics.Component.Measures))
	for i, m := range s.Metrics.Component.Measures {
		c.Metrics.Component.Measures[i] = m
		if m.Period != nil {
			period := *m.Period
			c.Metrics.Component.Measures[i].Period = &period
		}
	}
	c.Analytics.Reviews = Reviews{items: s.Analytics.Reviews.Items(), list: s.Analytics.Reviews.list}
	if s.CommitDiff != nil {
		diff := *s.CommitDiff
		c.CommitDiff = &diff
	}
	return c
}
