package activity

import (
	"strings"
	"time"
)

type Stats struct {
	TotalOpens   int `json:"totalOpens"`
	TotalCloses  int `json:"totalCloses"`
	ActiveUsers  int `json:"activeUsers"`
	SystemErrors int `json:"systemErrors"`
}

type StatusDistribution struct {
	Open    int `json:"open"`
	Closed  int `json:"closed"`
	Opening int `json:"opening"`
	Closing int `json:"closing"`
}

type Analytics struct {
	Stats              Stats              `json:"stats"`
	HourlyUsage        [24]int            `json:"hourlyUsage"`
	StatusDistribution StatusDistribution `json:"statusDistribution"`
	// Hour of today with the most entries, nil when nothing happened today.
	PeakHour     *int `json:"peakHour"`
	TotalEntries int  `json:"totalEntries"`
}

// Summarize aggregates a snapshot of the activity log. Hourly usage only counts
// entries from the calendar day of now, in now's location.
func Summarize(entries []Entry, now time.Time) Analytics {
	var a Analytics
	a.TotalEntries = len(entries)

	users := make(map[string]struct{})
	y, m, d := now.Date()
	for _, e := range entries {
		action := strings.ToLower(e.Action)
		opens := strings.Contains(action, "open")
		closes := strings.Contains(action, "close")

		if opens {
			a.Stats.TotalOpens++
		}
		if closes {
			a.Stats.TotalCloses++
		}
		if e.User != "" {
			users[e.User] = struct{}{}
		}
		if e.Type == TypeError {
			a.Stats.SystemErrors++
		}

		switch status, _ := e.Metadata["status"].(string); {
		case status == "opening":
			a.StatusDistribution.Opening++
		case status == "closing":
			a.StatusDistribution.Closing++
		case status == "open" || (status == "" && opens):
			a.StatusDistribution.Open++
		case status == "closed" || (status == "" && closes):
			a.StatusDistribution.Closed++
		}

		ts := e.Timestamp.In(now.Location())
		if ey, em, ed := ts.Date(); ey == y && em == m && ed == d {
			a.HourlyUsage[ts.Hour()]++
		}
	}
	a.Stats.ActiveUsers = len(users)

	for h, n := range a.HourlyUsage {
		if n > 0 && (a.PeakHour == nil || n > a.HourlyUsage[*a.PeakHour]) {
			a.PeakHour = &h
		}
	}
	return a
}
