package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/the-biKing/hikingTW/internal/config"
	"github.com/the-biKing/hikingTW/internal/engine"
	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
	"github.com/the-biKing/hikingTW/internal/trail"
)

func main() {
	cfg := config.Load()

	// Command line flags
	gpxPath := flag.String("gpx", "", "GPX track to replay")
	dataDir := flag.String("data", cfg.DataDir, "Directory with nodes.json and region segment files")
	days := flag.String("days", "", "Itinerary as waypoint ids, e.g. 'A,B,C;C,D'")
	factor := flag.Float64("speed-factor", pace.DefaultSpeedFactor, "Starting speed factor")
	changesOnly := flag.Bool("changes-only", false, "Only print snapshots where the route state changes")
	flag.Parse()

	if *gpxPath == "" || *days == "" {
		flag.Usage()
		os.Exit(2)
	}

	track, err := gpx.ParseFile(*gpxPath)
	if err != nil {
		log.Fatalf("Failed to parse GPX: %v", err)
	}
	fixes := fixesFromGPX(track)
	log.Printf("Loaded %d fixes from %s", len(fixes), *gpxPath)

	graph := trail.NewStore(os.DirFS(*dataDir))
	if err := graph.LoadIndex(); err != nil {
		log.Fatalf("Failed to load segment index: %v", err)
	}
	if err := graph.LoadNodes(); err != nil {
		log.Fatalf("Failed to load nodes: %v", err)
	}

	ctx := context.Background()
	store := engine.NewMemoryStore()
	if err := store.SaveItinerary(ctx, cfg.UserID, itinerary.New(parseDays(*days)...)); err != nil {
		log.Fatalf("Failed to seed itinerary: %v", err)
	}
	profile := pace.NewProfile(cfg.UserID)
	profile.SpeedFactor = *factor
	if err := store.SaveProfile(ctx, cfg.UserID, profile); err != nil {
		log.Fatalf("Failed to seed profile: %v", err)
	}

	session, err := engine.NewSession(ctx, graph, store, cfg.Session())
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	summary := replay(ctx, session, fixes, func(out engine.Output, changed bool) {
		if *changesOnly && !changed {
			return
		}
		if err := enc.Encode(out); err != nil {
			log.Printf("Failed to write snapshot: %v", err)
		}
	})

	fmt.Fprintf(os.Stderr, "fixes=%d alerts=%d completions=%d days-advanced=%d final-factor=%.2f\n",
		summary.Fixes, summary.Alerts, summary.Completions, summary.DaysAdvanced, session.Profile().SpeedFactor)
}

// Summary counts the notable events of a replay
type Summary struct {
	Fixes        int
	Alerts       int
	Completions  int
	DaysAdvanced int
}

// replay feeds fixes in order and reports every snapshot to emit
func replay(ctx context.Context, session *engine.Session, fixes []engine.Fix, emit func(out engine.Output, changed bool)) Summary {
	var sum Summary
	prev := session.Snapshot().State

	for _, fix := range fixes {
		out := session.OnFix(ctx, fix)
		sum.Fixes++
		if out.Alert != nil {
			sum.Alerts++
		}
		if out.Completion != nil {
			sum.Completions++
		}
		if out.DayAdvanced {
			sum.DaysAdvanced++
		}

		emit(out, out.State != prev)
		prev = out.State
	}
	return sum
}

// fixesFromGPX flattens every track segment into fixes.
// Points without a timestamp are spaced one second after the previous fix.
func fixesFromGPX(g *gpx.GPX) []engine.Fix {
	var (
		fixes []engine.Fix
		last  time.Time
	)
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				fix := engine.Fix{
					Latitude:  point.Latitude,
					Longitude: point.Longitude,
					Time:      point.Timestamp,
				}
				if point.Elevation.NotNull() {
					fix.Altitude = point.Elevation.Value()
				}
				if fix.Time.IsZero() {
					if last.IsZero() {
						last = time.Now()
					}
					fix.Time = last.Add(time.Second)
				}
				last = fix.Time
				fixes = append(fixes, fix)
			}
		}
	}
	return fixes
}

// parseDays splits "A,B,C;C,D" into day plans, dropping empty ids and days
func parseDays(s string) [][]string {
	var days [][]string
	for _, day := range strings.Split(s, ";") {
		var plan []string
		for _, id := range strings.Split(day, ",") {
			if id = strings.TrimSpace(id); id != "" {
				plan = append(plan, id)
			}
		}
		if len(plan) > 0 {
			days = append(days, plan)
		}
	}
	return days
}
