package main

import (
	"log"

	"github.com/shield-iot/dashboard/internal/feed"
)

// The chart widget and the card grid are external collaborators; this binary
// runs headless, so the renderers just log the instructions they would hand
// to a widget.

type logChartRenderer struct{}

func (logChartRenderer) UpdateChart(chartID string, datasets []feed.Dataset, animate bool) {
	total := 0
	for _, ds := range datasets {
		total += len(ds.Points)
	}
	log.Printf("chart %s: %d dataset(s), %d point(s), animate=%v", chartID, len(datasets), total, animate)
}

type logTimelineRenderer struct{}

func (logTimelineRenderer) UpdateTimeline(buckets []feed.DayBucket) {
	log.Printf("timeline: %d day bucket(s)", len(buckets))
}

type logOverviewRenderer struct{}

func (logOverviewRenderer) UpdateOverview(o feed.Overview) {
	log.Printf("overview: %d card(s), %d unacked alarm(s), connection=%s",
		len(o.Cards), o.Stats.UnacknowledgedAlarms, o.Connection.State)
}
