package domain

// SwingKind distingue picos de valles.
type SwingKind string

const (
	SwingPeak   SwingKind = "peak"
	SwingTrough SwingKind = "trough"
)

const (
	// DefaultSwingBars es el número de barras a CADA lado necesarias para confirmar un swing.
	DefaultSwingBars = 3
	// DefaultMaxTicks es el tamaño máximo de la ventana de ticks por símbolo.
	DefaultMaxTicks = 200
)

// SwingPoint es un extremo local confirmado. Index es la posición en la ventana
// de ticks en el momento de la detección, por lo que ordenar por Index es ordenar por tiempo.
type SwingPoint struct {
	Kind  SwingKind `json:"type"`
	Price float64   `json:"price"`
	Index int       `json:"index"`
}

// DetectSwings recorre la serie y devuelve los picos y valles confirmados.
//
// Un índice i es pico si prices[i] es estrictamente mayor que las `bars` barras
// anteriores y las `bars` posteriores; valle si es estrictamente menor. Los índices
// a menos de `bars` de cualquier borde no se evalúan (todavía no se pueden confirmar).
// Empates nunca confirman un extremo.
func DetectSwings(prices []float64, bars int) []SwingPoint {
	if bars <= 0 {
		bars = DefaultSwingBars
	}
	var swings []SwingPoint
	for i := bars; i < len(prices)-bars; i++ {
		p := prices[i]
		peak, trough := true, true
		for j := i - bars; j <= i+bars; j++ {
			if j == i {
				continue
			}
			if prices[j] >= p {
				peak = false
			}
			if prices[j] <= p {
				trough = false
			}
			if !peak && !trough {
				break
			}
		}
		switch {
		case peak:
			swings = append(swings, SwingPoint{Kind: SwingPeak, Price: p, Index: i})
		case trough:
			swings = append(swings, SwingPoint{Kind: SwingTrough, Price: p, Index: i})
		}
	}
	return swings
}

// splitSwings separa picos y valles conservando el orden temporal.
func splitSwings(swings []SwingPoint) (peaks, troughs []SwingPoint) {
	for _, s := range swings {
		if s.Kind == SwingPeak {
			peaks = append(peaks, s)
		} else {
			troughs = append(troughs, s)
		}
	}
	return peaks, troughs
}
