package sensor

import (
	"math/rand/v2"

	"github.com/jeyong/simsafety/internal/filter"
	"github.com/jeyong/simsafety/internal/tick"
	"github.com/jeyong/simsafety/internal/timeutil"
)

// BarometerParams configure a Barometer.
type BarometerParams struct {
	TimeConstant float64 // seconds of sensor lag
	NoiseSigma   float64 // Pa, zero disables noise
	Seed         uint64
}

// DefaultBarometerParams returns a lightly filtered, noisy barometer.
func DefaultBarometerParams() BarometerParams {
	return BarometerParams{TimeConstant: 0.05, NoiseSigma: 2}
}

// BarometerSensor measures static air pressure through a first-order lag.
type BarometerSensor struct {
	Base

	params BarometerParams
	lag    *filter.FirstOrder[float64]
	noise  *rand.Rand
}

// NewBarometerSensor creates a barometer.
func NewBarometerSensor(name string, params BarometerParams) (*BarometerSensor, error) {
	lag, err := filter.NewScalar(params.TimeConstant, 0, 0)
	if err != nil {
		return nil, err
	}
	return &BarometerSensor{
		Base:   newBase(name, Barometer),
		params: params,
		lag:    lag,
		noise:  newNoise(params.Seed),
	}, nil
}

// SetClock sets the clock of the barometer and its filter.
func (b *BarometerSensor) SetClock(c timeutil.Clock) error {
	if err := b.Base.SetClock(c); err != nil {
		return err
	}
	return b.lag.SetClock(c)
}

// Reset starts the filter settled on the current true pressure.
func (b *BarometerSensor) Reset() error {
	if err := b.Base.Reset(); err != nil {
		return err
	}
	p := b.GroundTruth().Environment.State().AirPressure
	if err := b.lag.Initialize(b.params.TimeConstant, p, p); err != nil {
		return err
	}
	return b.lag.Reset()
}

func (b *BarometerSensor) Update() error {
	if err := b.Base.Update(); err != nil {
		return err
	}
	p := b.GroundTruth().Environment.State().AirPressure
	if b.params.NoiseSigma > 0 {
		p += b.noise.NormFloat64() * b.params.NoiseSigma
	}
	b.lag.SetInput(p)
	return b.lag.Update()
}

// Pressure returns the last measurement in Pa.
func (b *BarometerSensor) Pressure() float64 { return b.lag.Output() }

func (b *BarometerSensor) ReportState(r tick.Reporter) {
	r.Value("pressure", b.Pressure())
}
