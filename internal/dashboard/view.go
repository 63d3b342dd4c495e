package dashboard

import (
	"github.com/darshan-golchha/code-complexity/internal/live"
	"github.com/darshan-golchha/code-complexity/internal/refresh"
	"github.com/darshan-golchha/code-complexity/internal/review"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/store"
)

const (
	NoMetricsText  = "No Metrics Available"
	NoDiffText     = "No Code Diff Available"
	RefreshLabel   = "Refresh Metrics"
	RefreshingText = "Refreshing..."
	ImportantMark  = "★"
)

type Card struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Period    string `json:"period,omitempty"`
	Important bool   `json:"important"`
}

// Display joins the value and period value the way the cards show them.
func (c Card) Display() string {
	if c.Period == "" {
		return c.Value
	}
	return c.Value + " " + c.Period
}

type Severity struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Status is everything outside the snapshot that the view depends on.
type Status struct {
	Mode       string
	Source     store.Source
	Live       bool
	Connection live.State
	LiveError  error
	Received   uint64
	Dropped    uint64
	Refresh    refresh.Status
}

type View struct {
	MasterSeverity    string        `json:"masterSeverity"`
	MasterSeverityRaw string        `json:"masterSeverityRaw"`
	GaugePercent      float64       `json:"gaugePercent"`
	Cards             []Card        `json:"cards"`
	NoMetrics         bool          `json:"noMetrics"`
	Review            review.Markup `json:"-"`
	ReviewHTML        string        `json:"reviewHtml"`
	ReviewText        string        `json:"reviewText"`
	Diff              string        `json:"diff"`
	HasDiff           bool          `json:"hasDiff"`
	Severities        []Severity    `json:"severities"`

	Mode         string `json:"mode"`
	Source       string `json:"source"`
	Live         bool   `json:"live"`
	Connection   string `json:"connection,omitempty"`
	Stale        bool   `json:"stale"`
	LiveError    string `json:"liveError,omitempty"`
	Received     uint64 `json:"received"`
	Dropped      uint64 `json:"dropped"`
	Loading      bool   `json:"loading"`
	RefreshLabel string `json:"refreshLabel"`
	Error        string `json:"error,omitempty"`
}

// Assemble maps a snapshot and session status into display-ready data.
func Assemble(snap snapshot.Snapshot, status Status) View {
	return assemble(review.Render, snap, status)
}

func assemble(render func(snapshot.Reviews) review.Markup, snap snapshot.Snapshot, status Status) View {
	markup := render(snap.Analytics.Reviews)

	v := View{
		MasterSeverity:    snapshot.FormatSeverity(snap.MasterSeverity),
		MasterSeverityRaw: snap.MasterSeverity.String(),
		GaugePercent:      GaugePercent(snap.MasterSeverity),
		Cards:             cards(snap.Metrics.Component.Measures),
		Review:            markup,
		ReviewHTML:        string(markup.HTML),
		ReviewText:        markup.Text(),
		Diff:              NoDiffText,
		Severities: []Severity{
			{Title: "Historical", Value: snapshot.FormatSeverity(snap.Analytics.ResultSeverities)},
			{Title: "Sonar Metrics", Value: snapshot.FormatSeverity(snap.SonarSeverity)},
			{Title: "Cyclomatic Complexity", Value: snap.Complexity.String()},
			{Title: "Code Review", Value: snap.Analytics.ReviewSeverities.String()},
		},
		Mode:         status.Mode,
		Source:       string(status.Source),
		Live:         status.Live,
		Received:     status.Received,
		Dropped:      status.Dropped,
		Loading:      status.Refresh.Loading(),
		RefreshLabel: RefreshLabel,
	}
	v.NoMetrics = len(v.Cards) == 0

	if snap.CommitDiff != nil && snap.CommitDiff.Diff != "" {
		v.Diff = snap.CommitDiff.Diff
		v.HasDiff = true
	}

	if status.Live {
		v.Connection = status.Connection.String()
		v.Stale = status.Connection != live.Connected
		if status.LiveError != nil {
			v.LiveError = status.LiveError.Error()
		}
	}
	if v.Loading {
		v.RefreshLabel = RefreshingText
	}
	if status.Refresh.LastError != nil {
		v.Error = status.Refresh.LastError.Error()
	}
	return v
}

func cards(measures []snapshot.Measure) []Card {
	out := make([]Card, 0, len(measures))
	for _, m := range measures {
		c := Card{
			Name:      m.Metric,
			Value:     m.Value.String(),
			Important: snapshot.IsImportantMetric(m.Metric),
		}
		if m.Period != nil {
			c.Period = m.Period.Value.String()
		}
		out = append(out, c)
	}
	return out
}

// GaugePercent scales a master severity on a 0-4 scale to a 0-100 dial.
func GaugePercent(v snapshot.Value) float64 {
	f, ok := v.Float()
	if !ok {
		return 0
	}
	p := f * 25
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
