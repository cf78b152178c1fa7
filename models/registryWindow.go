package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
)

// RegistryFilter narrows the registry arena. A zero filter matches all rows.
type RegistryFilter struct {
	Query  string       `json:"query" form:"query"`
	Zone   string       `json:"zone" form:"zone"`
	Status *CableStatus `json:"status" form:"status"`
}

func (f RegistryFilter) signature() string {
	status := ""
	if f.Status != nil {
		status = string(*f.Status)
	}
	return fmt.Sprintf("%s|%s|%s", strings.ToUpper(strings.TrimSpace(f.Query)), f.Zone, status)
}

// RegistryArena is an immutable, stably-ordered snapshot of the filtered
// registry. Windows index into it without touching the database.
type RegistryArena struct {
	rows []*CableRecord
}

func (a *RegistryArena) Len() int {
	return len(a.rows)
}

func (a *RegistryArena) Rows() []*CableRecord {
	return a.rows
}

// RegistryWindow is the half-open row range [Start, End) a viewport renders,
// plus the pixel padding that stands in for the rows outside it.
type RegistryWindow struct {
	Start     int            `json:"start"`
	End       int            `json:"end"`
	TotalRows int            `json:"total_rows"`
	TopPad    int            `json:"top_pad"`
	BottomPad int            `json:"bottom_pad"`
	Rows      []*CableRecord `json:"rows"`
}

// Window computes the visible row range for a scroll position. The range
// never exceeds ceil(viewportHeight/rowHeight) + 2*overscan rows, however
// large the arena is.
func (a *RegistryArena) Window(scrollOffset int, viewportHeight int, rowHeight int, overscan int) (RegistryWindow, error) {
	if rowHeight <= 0 {
		return RegistryWindow{}, errors.New("row height must be positive")
	}
	if viewportHeight < 0 || overscan < 0 {
		return RegistryWindow{}, errors.New("viewport height and overscan must not be negative")
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	total := a.Len()
	firstVisible := scrollOffset / rowHeight
	visibleCount := (viewportHeight + rowHeight - 1) / rowHeight

	start := firstVisible - overscan
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := firstVisible + visibleCount + overscan
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}

	return RegistryWindow{
		Start:     start,
		End:       end,
		TotalRows: total,
		TopPad:    start * rowHeight,
		BottomPad: (total - end) * rowHeight,
		Rows:      a.rows[start:end],
	}, nil
}

func matchesFilter(cable *CableRecord, filter RegistryFilter) bool {
	if filter.Zone != "" && cable.Zone != filter.Zone {
		return false
	}
	if filter.Status != nil && cable.Status != *filter.Status {
		return false
	}
	if q := strings.ToUpper(strings.TrimSpace(filter.Query)); q != "" {
		if !strings.Contains(cable.Code, q) &&
			!strings.Contains(strings.ToUpper(cable.Description), q) {
			return false
		}
	}
	return true
}

// BuildRegistryArena loads and filters the vessel registry into an arena.
// Ordering is by code, with id as tiebreaker so equal codes keep a stable
// order across rebuilds.
func BuildRegistryArena(ctx context.Context, vesselId string, filter RegistryFilter) (*RegistryArena, error) {
	cables, err := AllCables(ctx, vesselId)
	if err != nil {
		return nil, err
	}

	var rows []*CableRecord
	for _, cable := range cables {
		if matchesFilter(cable, filter) {
			rows = append(rows, cable)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].ID < rows[j].ID
	})

	return &RegistryArena{rows: rows}, nil
}

// RegistryBrowser caches arenas per vessel and filter so repeated scrolling
// does not rebuild the snapshot. Mutations to the registry invalidate the
// vessel's cache.
type RegistryBrowser struct {
	mu     sync.RWMutex
	arenas map[string]*RegistryArena
}

func NewRegistryBrowser() *RegistryBrowser {
	return &RegistryBrowser{arenas: make(map[string]*RegistryArena)}
}

func (b *RegistryBrowser) cacheKey(vesselId string, filter RegistryFilter) string {
	return vesselId + "#" + filter.signature()
}

// Arena returns the cached snapshot for (vessel, filter), building it on a
// miss.
func (b *RegistryBrowser) Arena(ctx context.Context, vesselId string, filter RegistryFilter) (*RegistryArena, error) {
	key := b.cacheKey(vesselId, filter)

	b.mu.RLock()
	arena, ok := b.arenas[key]
	b.mu.RUnlock()
	if ok {
		return arena, nil
	}

	arena, err := BuildRegistryArena(ctx, vesselId, filter)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.arenas[key] = arena
	b.mu.Unlock()
	return arena, nil
}

// Invalidate drops every cached arena for a vessel.
func (b *RegistryBrowser) Invalidate(vesselId string) {
	prefix := vesselId + "#"
	b.mu.Lock()
	for key := range b.arenas {
		if strings.HasPrefix(key, prefix) {
			delete(b.arenas, key)
		}
	}
	b.mu.Unlock()
}

// Window is the browser's main entry point: cached arena plus window math.
func (b *RegistryBrowser) Window(ctx context.Context, vesselId string, filter RegistryFilter, scrollOffset, viewportHeight, rowHeight, overscan int) (RegistryWindow, error) {
	arena, err := b.Arena(ctx, vesselId, filter)
	if err != nil {
		return RegistryWindow{}, err
	}
	return arena.Window(scrollOffset, viewportHeight, rowHeight, overscan)
}

// SelectionTracker guards detail lookups against out-of-order completion:
// only the most recent selection may publish its result.
type SelectionTracker struct {
	mu      sync.Mutex
	current uint64
}

// Select registers a new selection and returns its token.
func (t *SelectionTracker) Select() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	return t.current
}

// IsCurrent reports whether token is still the latest selection.
func (t *SelectionTracker) IsCurrent(token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return token == t.current
}

// ResolveSelection fetches a cable's detail for a selection, discarding the
// result when the user has moved on meanwhile.
func (t *SelectionTracker) ResolveSelection(ctx context.Context, token uint64, cableId int) (*CableRecord, bool, error) {
	cable, err := GetCableRecord(ctx, cableId)
	if err != nil {
		return nil, false, err
	}
	if !t.IsCurrent(token) {
		logger := config.GetLogger()
		logger.WithField("cable_id", cableId).Debug("stale selection lookup discarded")
		return nil, false, nil
	}
	return cable, true, nil
}
