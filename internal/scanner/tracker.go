package scanner

import (
	"errors"
	"math"

	"github.com/alejandrodnm/tradepulse/internal/domain"
)

// ErrInvalidTick se devuelve para precios no finitos o no positivos; la ventana no cambia.
var ErrInvalidTick = errors.New("invalid tick: price must be a positive finite number")

// Tracker mantiene la ventana de ticks de un único símbolo y la última evaluación ICC.
// No es seguro para uso concurrente: Scanner serializa el acceso.
type Tracker struct {
	params   domain.WindowParams
	window   []float64
	swings   []domain.SwingPoint
	last     domain.Evaluation
	lastTick float64
	hasTick  bool
}

// NewTracker crea un tracker vacío con los parámetros dados.
func NewTracker(p domain.WindowParams) *Tracker {
	return &Tracker{
		params: p,
		last: domain.Evaluation{
			Signal: domain.SignalNeutral,
			Stage:  domain.StageAccumulating,
			Label:  "accumulating swing data",
		},
	}
}

// Update añade un tick y devuelve la evaluación resultante.
// Un tick igual al anterior devuelve la evaluación cacheada sin recalcular.
func (t *Tracker) Update(price float64) (domain.Evaluation, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return t.last, ErrInvalidTick
	}
	if t.hasTick && price == t.lastTick {
		return t.last, nil
	}
	t.window, t.swings, t.last = domain.Advance(t.window, price, t.params)
	t.lastTick = price
	t.hasTick = true
	return t.last, nil
}

// Swings devuelve una copia de los swings detectados en la ventana actual.
func (t *Tracker) Swings() []domain.SwingPoint {
	out := make([]domain.SwingPoint, len(t.swings))
	copy(out, t.swings)
	return out
}

// Len devuelve el número de ticks en la ventana.
func (t *Tracker) Len() int {
	return len(t.window)
}

// Last devuelve la última evaluación.
func (t *Tracker) Last() domain.Evaluation {
	return t.last
}
