package scanner

import (
	"sort"
	"sync"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// Observation es el resultado de procesar un tick.
type Observation struct {
	Symbol     string
	Price      float64
	Evaluation domain.Evaluation
	Swings     []domain.SwingPoint
	// Triggered es true solo en la transición a BUY o SELL desde cualquier otra señal.
	Triggered bool
}

// Scanner mantiene un Tracker por símbolo y detecta transiciones de señal.
type Scanner struct {
	params domain.WindowParams

	mu         sync.Mutex
	trackers   map[string]*Tracker
	lastSignal map[string]domain.Signal
}

// New crea un Scanner con los parámetros de ventana dados.
func New(p domain.WindowParams) *Scanner {
	if p.SwingBars <= 0 {
		p.SwingBars = domain.DefaultSwingBars
	}
	if p.MaxTicks <= 0 {
		p.MaxTicks = domain.DefaultMaxTicks
	}
	return &Scanner{
		params:     p,
		trackers:   make(map[string]*Tracker),
		lastSignal: make(map[string]domain.Signal),
	}
}

// Observe procesa un tick del símbolo.
// La señal vuelve a armarse cuando regresa a NEUTRAL o cambia de dirección.
func (s *Scanner) Observe(symbol string, price float64) (Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[symbol]
	if !ok {
		t = NewTracker(s.params)
		s.trackers[symbol] = t
	}

	ev, err := t.Update(price)
	if err != nil {
		return Observation{}, err
	}

	prev, seen := s.lastSignal[symbol]
	if !seen {
		prev = domain.SignalNeutral
	}
	s.lastSignal[symbol] = ev.Signal

	return Observation{
		Symbol:     symbol,
		Price:      price,
		Evaluation: ev,
		Swings:     t.Swings(),
		Triggered:  ev.Signal.IsDirectional() && ev.Signal != prev,
	}, nil
}

// Snapshot devuelve la última evaluación de cada símbolo, ordenada por símbolo.
func (s *Scanner) Snapshot() []Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Observation, 0, len(s.trackers))
	for sym, t := range s.trackers {
		out = append(out, Observation{
			Symbol:     sym,
			Price:      t.lastTick,
			Evaluation: t.Last(),
			Swings:     t.Swings(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
