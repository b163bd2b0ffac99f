package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/the-biKing/hikingTW/internal/engine"
	"github.com/the-biKing/hikingTW/internal/geo"
	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/route"
	"github.com/the-biKing/hikingTW/internal/trail"
)

// d100 is 100 m of longitude on the equator
var d100 = 100 / geo.Haversine(0, 0, 0, 1)

type trkpt struct {
	lat, lon float64
	ele      string
	time     string
}

func buildGPX(t *testing.T, pts []trkpt) *gpx.GPX {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="replay-test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>`)
	for _, p := range pts {
		fmt.Fprintf(&b, `<trkpt lat="%.12f" lon="%.12f">`, p.lat, p.lon)
		if p.ele != "" {
			fmt.Fprintf(&b, "<ele>%s</ele>", p.ele)
		}
		if p.time != "" {
			fmt.Fprintf(&b, "<time>%s</time>", p.time)
		}
		b.WriteString("</trkpt>")
	}
	b.WriteString("</trkseg></trk></gpx>")

	g, err := gpx.ParseBytes([]byte(b.String()))
	if err != nil {
		t.Fatalf("parse gpx: %v", err)
	}
	return g
}

func TestFixesFromGPX(t *testing.T) {
	g := buildGPX(t, []trkpt{
		{lat: 24.1, lon: 121.2, ele: "2450.5", time: "2025-10-01T07:00:00Z"},
		{lat: 24.2, lon: 121.3},
	})

	fixes := fixesFromGPX(g)
	if len(fixes) != 2 {
		t.Fatalf("got %d fixes, want 2", len(fixes))
	}
	first := time.Date(2025, 10, 1, 7, 0, 0, 0, time.UTC)
	if !fixes[0].Time.Equal(first) || fixes[0].Altitude != 2450.5 {
		t.Errorf("first fix = %+v", fixes[0])
	}
	if fixes[1].Altitude != 0 {
		t.Errorf("missing elevation should read 0, got %v", fixes[1].Altitude)
	}
	if !fixes[1].Time.Equal(first.Add(time.Second)) {
		t.Errorf("untimed fix at %v, want one second after the previous", fixes[1].Time)
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want [][]string
	}{
		{"A,B,C", [][]string{{"A", "B", "C"}}},
		{"A, B ;B,C;", [][]string{{"A", "B"}, {"B", "C"}}},
		{" ; ,", nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseDays(tt.in)); diff != "" {
			t.Errorf("parseDays(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestReplay(t *testing.T) {
	g := trail.NewStore(nil)
	g.AddNodes(
		trail.Node{ID: "A", Name: "Trailhead"},
		trail.Node{ID: "B", Name: "Cabin", Longitude: 3 * d100},
	)
	g.AddSegments(trail.Segment{ID: "A_B", StandardTime: 10, RevStandardTime: 8, Points: []geo.Point{
		{Longitude: 0, Elevation: 1000},
		{Longitude: 3 * d100, Elevation: 1030},
	}})

	ctx := context.Background()
	store := engine.NewMemoryStore()
	store.SaveItinerary(ctx, "default", itinerary.New([]string{"A", "B"}))
	session, err := engine.NewSession(ctx, g, store, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	track := buildGPX(t, []trkpt{
		{lon: 0, time: "2025-10-01T07:00:00Z"},
		{lon: d100, time: "2025-10-01T07:02:00Z"},
		{lon: 2 * d100, time: "2025-10-01T07:08:00Z"},
		{lon: 3 * d100, time: "2025-10-01T07:14:00Z"},
		// ~220 m north of the cabin
		{lat: 0.002, lon: 3 * d100, time: "2025-10-01T07:15:00Z"},
	})

	var changes []route.State
	sum := replay(ctx, session, fixesFromGPX(track), func(out engine.Output, changed bool) {
		if changed {
			changes = append(changes, out.State)
		}
	})

	want := Summary{Fixes: 5, Alerts: 1, Completions: 1}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]route.State{route.Active, route.OffRoute}, changes); diff != "" {
		t.Errorf("state changes mismatch (-want +got):\n%s", diff)
	}
	if f := session.Profile().SpeedFactor; f < 1.19 || f > 1.21 {
		t.Errorf("speed factor = %v, want 1.2", f)
	}
}
