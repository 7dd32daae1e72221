package picker

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/edgard/what2eat/internal/menu"
)

// Source is the read side of the restaurant catalog.
type Source interface {
	IDs() ([]string, error)
	Load(id string) (*menu.Restaurant, error)
}

// Stats describes the in-memory state of a Menu.
type Stats struct {
	Restaurants int
	Cached      int
}

// Menu serves random picks from a Source. Restaurants are loaded lazily and
// kept for the life of the process; Reload is the only way to drop them.
type Menu struct {
	source      Source
	maxAttempts int
	logger      *slog.Logger

	mu    sync.RWMutex
	ids   []string
	cache map[string]*menu.Restaurant

	rng *rand.Rand
}

// lockedSource serializes draws so one Rand can serve concurrent picks.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewMenu creates a Menu. Call Reload before the first Pick.
func NewMenu(source Source, maxAttempts int, rng *rand.Rand, logger *slog.Logger) *Menu {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{
		source:      source,
		maxAttempts: maxAttempts,
		rng:         rand.New(&lockedSource{src: rng}),
		logger:      logger.With("component", "menu"),
		cache:       make(map[string]*menu.Restaurant),
	}
}

// Reload clears the cache and re-enumerates the restaurant ids.
func (m *Menu) Reload() (int, error) {
	ids, err := m.source.IDs()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate restaurants: %w", err)
	}

	m.mu.Lock()
	m.ids = ids
	m.cache = make(map[string]*menu.Restaurant)
	m.mu.Unlock()

	m.logger.Info("Restaurant ids loaded", "count", len(ids))
	return len(ids), nil
}

// Stats returns the id count and the number of memoized restaurants.
func (m *Menu) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Restaurants: len(m.ids), Cached: len(m.cache)}
}

// Pick draws a random product. The boolean is false when no usable
// restaurant was found within the attempt budget.
func (m *Menu) Pick() (Pick, bool) {
	m.mu.RLock()
	ids := m.ids
	m.mu.RUnlock()

	return PickRandom(ids, m.load, m.maxAttempts, m.rng)
}

func (m *Menu) load(id string) (*menu.Restaurant, error) {
	m.mu.RLock()
	r, ok := m.cache[id]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := m.source.Load(id)
	if err != nil {
		m.logger.Debug("Failed to load restaurant", "restaurant_id", id, "error", err)
		return nil, err
	}

	m.mu.Lock()
	m.cache[id] = r
	m.mu.Unlock()
	return r, nil
}
