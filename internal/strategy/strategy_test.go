package strategy

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradepulse/internal/domain"
	"github.com/alejandrodnm/tradepulse/internal/ports"
)

type fakeGenerator struct {
	setup domain.TradeSetup
	err   error
	delay time.Duration
	calls int
}

func (f *fakeGenerator) GenerateSetup(ctx context.Context, _ ports.SetupRequest) (domain.TradeSetup, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.TradeSetup{}, ctx.Err()
		}
	}
	return f.setup, f.err
}

func buyRequest() ports.SetupRequest {
	return ports.SetupRequest{Symbol: "BTC/USD", Signal: domain.SignalBuy, CurrentPrice: 100}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFallback())
	r.Register(NewAssisted(nil, 0))

	s, ok := r.Get(FallbackName)
	require.True(t, ok)
	assert.Equal(t, FallbackName, s.Name())

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestAssisted_UsesGeneratorLevels(t *testing.T) {
	gen := &fakeGenerator{setup: domain.TradeSetup{Entry: 100, StopLoss: 97, TakeProfit: 112}}
	a := NewAssisted(gen, time.Second)

	setup, err := a.Calculate(context.Background(), buyRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 97.0, setup.StopLoss)
	assert.Equal(t, 112.0, setup.TakeProfit)
	assert.Equal(t, domain.SourceAssisted, setup.Source)
}

func TestAssisted_FallbackOnError(t *testing.T) {
	a := NewAssisted(&fakeGenerator{err: errors.New("boom")}, time.Second)

	setup, err := a.Calculate(context.Background(), buyRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, setup.Source)
	assert.InDelta(t, 99, setup.StopLoss, 1e-9)
	assert.InDelta(t, 102, setup.TakeProfit, 1e-9)
}

func TestAssisted_FallbackOnInvalidLevels(t *testing.T) {
	cases := map[string]domain.TradeSetup{
		"nan":          {Entry: 100, StopLoss: math.NaN(), TakeProfit: 110},
		"wrong order":  {Entry: 100, StopLoss: 105, TakeProfit: 110},
		"zero entry":   {Entry: 0, StopLoss: 95, TakeProfit: 110},
		"inverted buy": {Entry: 100, StopLoss: 110, TakeProfit: 90},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			a := NewAssisted(&fakeGenerator{setup: s}, time.Second)
			setup, err := a.Calculate(context.Background(), buyRequest())
			require.NoError(t, err)
			assert.Equal(t, domain.SourceFallback, setup.Source)
		})
	}
}

func TestAssisted_FallbackOnTimeout(t *testing.T) {
	gen := &fakeGenerator{
		setup: domain.TradeSetup{Entry: 100, StopLoss: 97, TakeProfit: 112},
		delay: time.Second,
	}
	a := NewAssisted(gen, 10*time.Millisecond)

	setup, err := a.Calculate(context.Background(), buyRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, setup.Source)
}

func TestAssisted_RejectsNeutral(t *testing.T) {
	gen := &fakeGenerator{}
	a := NewAssisted(gen, time.Second)

	_, err := a.Calculate(context.Background(), ports.SetupRequest{Signal: domain.SignalNeutral, CurrentPrice: 100})

	assert.Error(t, err)
	assert.Zero(t, gen.calls)
}

func TestFallback_Sell(t *testing.T) {
	setup, err := NewFallback().Calculate(context.Background(),
		ports.SetupRequest{Signal: domain.SignalSell, CurrentPrice: 50})

	require.NoError(t, err)
	assert.InDelta(t, 50.5, setup.StopLoss, 1e-9)
	assert.InDelta(t, 49, setup.TakeProfit, 1e-9)
}

func TestCandleMomentum(t *testing.T) {
	cm := NewCandleMomentum()
	assert.Equal(t, CandleMomentumName, cm.Name())

	dir, _, err := cm.Evaluate(domain.Candle{Open: 100, Close: 108, High: 110, Low: 98})
	require.NoError(t, err)
	assert.Equal(t, domain.Long, dir)

	_, _, err = cm.Evaluate(domain.Candle{Open: 100, Close: 101, High: 110, Low: 98})
	assert.ErrorIs(t, err, domain.ErrNoSetup)
}
