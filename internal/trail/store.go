package trail

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/the-biKing/hikingTW/internal/geo"
)

const (
	// IndexFile maps region code -> segment file name
	IndexFile = "segment_file_index.json"
	// NodesFile holds every waypoint of every region
	NodesFile = "nodes.json"

	// minSegmentLength keeps fraction-of-segment math away from division by zero
	minSegmentLength = 1.0
)

// Store is the in-memory trail graph. Segments are loaded lazily per region
// and never mutated once loaded.
type Store struct {
	fsys fs.FS

	mu          sync.RWMutex // protects everything below
	fileIndex   map[string]string
	loadedFiles map[string]bool
	segments    map[string]Segment
	nodes       map[string]Node
}

// NewStore creates a store reading data files from fsys. fsys may be nil for
// a purely in-memory graph built with AddNodes/AddSegments.
func NewStore(fsys fs.FS) *Store {
	return &Store{
		fsys:        fsys,
		fileIndex:   make(map[string]string),
		loadedFiles: make(map[string]bool),
		segments:    make(map[string]Segment),
		nodes:       make(map[string]Node),
	}
}

// LoadIndex reads the region -> file index
func (s *Store) LoadIndex() error {
	if s.fsys == nil {
		return fmt.Errorf("no data source configured")
	}

	data, err := fs.ReadFile(s.fsys, IndexFile)
	if err != nil {
		return fmt.Errorf("failed to read segment index: %w", err)
	}

	var index map[string]string
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("failed to parse segment index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for code, file := range index {
		s.fileIndex[strings.ToUpper(code)] = file
	}

	log.Printf("Trail: segment index has %d regions", len(index))
	return nil
}

// LoadNodes reads nodes.json
func (s *Store) LoadNodes() error {
	if s.fsys == nil {
		return fmt.Errorf("no data source configured")
	}

	data, err := fs.ReadFile(s.fsys, NodesFile)
	if err != nil {
		return fmt.Errorf("failed to read nodes: %w", err)
	}

	var collection NodeCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return fmt.Errorf("failed to parse nodes: %w", err)
	}

	s.AddNodes(collection.Nodes...)
	log.Printf("Trail: loaded %d nodes", len(collection.Nodes))
	return nil
}

// LoadRegion makes sure the segment files for the given region codes are in
// memory. Files already loaded are skipped, so calling it twice is cheap.
// Codes missing from the index are returned and logged; they are not an error.
func (s *Store) LoadRegion(codes ...string) []string {
	var unknown []string
	required := make(map[string]bool)

	s.mu.RLock()
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		file, ok := s.fileIndex[code]
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		if !s.loadedFiles[file] {
			required[file] = true
		}
	}
	s.mu.RUnlock()

	for _, code := range unknown {
		log.Printf("Trail: region code %s not found in index", code)
	}

	if len(required) == 0 {
		return unknown
	}

	files := make([]string, 0, len(required))
	for file := range required {
		files = append(files, file)
	}
	sort.Strings(files)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, file := range files {
		// Another caller may have loaded it while we waited for the lock
		if s.loadedFiles[file] {
			continue
		}
		if err := s.loadSegmentFileLocked(file); err != nil {
			log.Printf("Trail: failed to load %s: %v", file, err)
		}
	}

	return unknown
}

// loadSegmentFileLocked loads one region file - caller must hold s.mu lock
func (s *Store) loadSegmentFileLocked(file string) error {
	if s.fsys == nil {
		return fmt.Errorf("no data source configured")
	}

	data, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return err
	}

	var collection SegmentCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return err
	}

	for _, seg := range collection.Segments {
		s.segments[seg.ID] = seg
	}
	s.loadedFiles[file] = true

	log.Printf("Trail: loaded %d segments from %s", len(collection.Segments), file)
	return nil
}

// AddNodes registers waypoints directly
func (s *Store) AddNodes(nodes ...Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
}

// AddSegments registers segments directly
func (s *Store) AddSegments(segments ...Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seg := range segments {
		s.segments[seg.ID] = seg
	}
}

// Lookup resolves a node pair to its stored segment. forward is false when
// only the reverse id exists; the caller must then read the points backwards.
func (s *Store) Lookup(fromID, toID string) (seg Segment, forward bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if seg, ok := s.segments[SegmentID(fromID, toID)]; ok {
		return seg, true, true
	}
	if seg, ok := s.segments[SegmentID(toID, fromID)]; ok {
		return seg, false, true
	}
	return Segment{}, false, false
}

// Oriented returns the points of the edge ordered from fromID to toID
func (s *Store) Oriented(fromID, toID string) ([]geo.Point, bool) {
	seg, forward, ok := s.Lookup(fromID, toID)
	if !ok {
		return nil, false
	}
	if forward {
		return seg.Points, true
	}
	return geo.Reverse(seg.Points), true
}

// StandardTime returns the reference minutes for travelling fromID -> toID.
// The reverse direction has its own stored value.
func (s *Store) StandardTime(fromID, toID string) (float64, bool) {
	seg, forward, ok := s.Lookup(fromID, toID)
	if !ok {
		return 0, false
	}
	if forward {
		return seg.StandardTime, true
	}
	return seg.RevStandardTime, true
}

// SegmentLength returns the polyline length of the edge in meters, never
// less than 1 m (also for a missing edge)
func (s *Store) SegmentLength(fromID, toID string) float64 {
	seg, _, ok := s.Lookup(fromID, toID)
	if !ok {
		return minSegmentLength
	}
	return math.Max(geo.LineLength(seg.Points), minSegmentLength)
}

// Node returns a waypoint by id
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns every loaded waypoint sorted by id
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// SegmentCount returns how many segments are loaded
func (s *Store) SegmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// ClosestNode finds the nearest waypoint among ids (all nodes when ids is empty).
// Unknown ids are ignored.
func (s *Store) ClosestNode(p geo.Point, ids []string) (Node, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Node
	bestDist := math.MaxFloat64
	found := false

	consider := func(n Node) {
		d := geo.Haversine(p.Latitude, p.Longitude, n.Latitude, n.Longitude)
		if d < bestDist {
			best, bestDist, found = n, d, true
		}
	}

	if len(ids) == 0 {
		for _, n := range s.nodes {
			consider(n)
		}
	} else {
		for _, id := range ids {
			if n, ok := s.nodes[id]; ok {
				consider(n)
			}
		}
	}

	return best, bestDist, found
}

// StartNodes returns trailhead nodes (id prefix "S_") belonging to any of the
// region codes, sorted by id
func (s *Store) StartNodes(codes []string) []Node {
	var starts []Node
	for _, n := range s.Nodes() {
		id := strings.ToUpper(n.ID)
		if !strings.HasPrefix(id, "S_") {
			continue
		}
		for _, code := range codes {
			code = strings.ToUpper(code)
			if strings.Contains(id, "_"+code+"_") || strings.HasSuffix(id, "_"+code) {
				starts = append(starts, n)
				break
			}
		}
	}
	return starts
}

// RegionPrefix extracts the region code from a node id (s_WM_01 -> WM)
func RegionPrefix(nodeID string) string {
	clean := strings.TrimPrefix(nodeID, "s_")
	end := strings.IndexFunc(clean, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(clean)
	}
	return strings.ToUpper(clean[:end])
}
