package domain

import "fmt"

// Signal es la dirección que emite el evaluador ICC.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// IsDirectional devuelve true para BUY y SELL.
func (s Signal) IsDirectional() bool {
	return s == SignalBuy || s == SignalSell
}

// Stage es el estado conceptual de la máquina ICC para la ventana actual.
type Stage string

const (
	StageAccumulating Stage = "ACCUMULATING" // menos de 2 picos o 2 valles
	StageScanning     Stage = "SCANNING"     // hay swings pero ningún patrón
	StageHint         Stage = "HINT"         // LL o HH aislado, solo informativo
	StageSellSetup    Stage = "SELL_SETUP"   // LL + LH, esperando ruptura
	StageBuySetup     Stage = "BUY_SETUP"    // HH + HL, esperando ruptura
	StageConfirmed    Stage = "CONFIRMED"    // continuación confirmada → BUY/SELL
)

// Evaluation es el resultado de evaluar el patrón ICC con el último precio.
type Evaluation struct {
	Signal Signal
	Stage  Stage
	Label  string

	// WatchLevel es el nivel cuya ruptura confirma el setup. Nil si no hay setup.
	WatchLevel *float64
}

// HasWatchLevel devuelve true si la evaluación vigila un nivel concreto.
func (e Evaluation) HasWatchLevel() bool {
	return e.WatchLevel != nil
}

func neutral(stage Stage, label string) Evaluation {
	return Evaluation{Signal: SignalNeutral, Stage: stage, Label: label}
}

func level(v float64) *float64 {
	return &v
}

// EvaluateICC aplica la máquina de estados Indication–Correction–Continuation
// sobre los dos picos y los dos valles más recientes.
//
// SELL: prevTrough < prevPeak < lastTrough < lastPeak (en tiempo),
// lastTrough < prevTrough (LL) y lastPeak < prevPeak (LH); se confirma cuando
// price < lastTrough.
//
// BUY: prevPeak < prevTrough < lastPeak < lastTrough,
// lastPeak > prevPeak (HH) y lastTrough > prevTrough (HL); se confirma cuando
// price > lastPeak.
//
// Regla de desempate: SELL se evalúa antes que BUY. Si ambas secuencias fueran
// válidas en la misma ventana gana SELL.
func EvaluateICC(swings []SwingPoint, price float64) Evaluation {
	peaks, troughs := splitSwings(swings)
	if len(peaks) < 2 || len(troughs) < 2 {
		return neutral(StageAccumulating, "accumulating swing data")
	}

	prevPeak, lastPeak := peaks[len(peaks)-2], peaks[len(peaks)-1]
	prevTrough, lastTrough := troughs[len(troughs)-2], troughs[len(troughs)-1]

	lowerLow := lastTrough.Price < prevTrough.Price
	lowerHigh := lastPeak.Price < prevPeak.Price
	sellOrder := prevTrough.Index < prevPeak.Index &&
		prevPeak.Index < lastTrough.Index &&
		lastTrough.Index < lastPeak.Index

	if sellOrder && lowerLow && lowerHigh {
		if price < lastTrough.Price {
			return Evaluation{
				Signal:     SignalSell,
				Stage:      StageConfirmed,
				Label:      fmt.Sprintf("ICC SELL: LL %.4f -> LH %.4f -> break", lastTrough.Price, lastPeak.Price),
				WatchLevel: level(lastTrough.Price),
			}
		}
		return Evaluation{
			Signal:     SignalNeutral,
			Stage:      StageSellSetup,
			Label:      fmt.Sprintf("ICC SELL setup: watching break below %.4f", lastTrough.Price),
			WatchLevel: level(lastTrough.Price),
		}
	}

	higherHigh := lastPeak.Price > prevPeak.Price
	higherLow := lastTrough.Price > prevTrough.Price
	buyOrder := prevPeak.Index < prevTrough.Index &&
		prevTrough.Index < lastPeak.Index &&
		lastPeak.Index < lastTrough.Index

	if buyOrder && higherHigh && higherLow {
		if price > lastPeak.Price {
			return Evaluation{
				Signal:     SignalBuy,
				Stage:      StageConfirmed,
				Label:      fmt.Sprintf("ICC BUY: HH %.4f -> HL %.4f -> break", lastPeak.Price, lastTrough.Price),
				WatchLevel: level(lastPeak.Price),
			}
		}
		return Evaluation{
			Signal:     SignalNeutral,
			Stage:      StageBuySetup,
			Label:      fmt.Sprintf("ICC BUY setup: watching break above %.4f", lastPeak.Price),
			WatchLevel: level(lastPeak.Price),
		}
	}

	// Pistas parciales: no cambian la señal.
	if lowerLow {
		return neutral(StageHint, fmt.Sprintf("lower low at %.4f, watching for lower high", lastTrough.Price))
	}
	if higherHigh {
		return neutral(StageHint, fmt.Sprintf("higher high at %.4f, watching for higher low", lastPeak.Price))
	}
	return neutral(StageScanning, "scanning for ICC setup")
}

// WindowParams configura la ventana de ticks y la detección de swings.
type WindowParams struct {
	SwingBars int
	MaxTicks  int
}

// DefaultWindowParams devuelve W=3 y una ventana de 200 ticks.
func DefaultWindowParams() WindowParams {
	return WindowParams{SwingBars: DefaultSwingBars, MaxTicks: DefaultMaxTicks}
}

// Advance añade tick a la ventana (descartando el más antiguo si se supera MaxTicks)
// y recalcula desde cero swings y evaluación. No modifica window: devuelve una copia.
func Advance(window []float64, tick float64, p WindowParams) ([]float64, []SwingPoint, Evaluation) {
	if p.MaxTicks <= 0 {
		p.MaxTicks = DefaultMaxTicks
	}
	if p.SwingBars <= 0 {
		p.SwingBars = DefaultSwingBars
	}

	start := 0
	if len(window) >= p.MaxTicks {
		start = len(window) - p.MaxTicks + 1
	}
	next := make([]float64, 0, len(window)-start+1)
	next = append(next, window[start:]...)
	next = append(next, tick)

	swings := DetectSwings(next, p.SwingBars)
	return next, swings, EvaluateICC(swings, tick)
}
