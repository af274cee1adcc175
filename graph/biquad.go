package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// FilterDesign selects how biquad coefficients are computed.
type FilterDesign int

// Filter designs.
const (
	Butterworth FilterDesign = iota
	Chebyshev
	// CustomFilter uses the coefficients from the config.
	CustomFilter
)

func (d FilterDesign) String() string {
	switch d {
	case Butterworth:
		return "Butterworth"
	case Chebyshev:
		return "Chebyshev"
	case CustomFilter:
		return "Custom"
	}
	return fmt.Sprintf("design(%d)", int(d))
}

// FilterPass selects the pass band.
type FilterPass int

// Pass bands.
const (
	LowPass FilterPass = iota
	HighPass
)

func (p FilterPass) String() string {
	if p == HighPass {
		return "HighPass"
	}
	return "LowPass"
}

// unstableLimit is the output magnitude above which a filter is
// considered unstable.
const unstableLimit = 10e6

var (
	// ErrInvalidFilter is returned for filter configs that can't be
	// designed.
	ErrInvalidFilter = errors.New("invalid filter")
)

// FilterConfig configures a biquad filter node.
type FilterConfig struct {
	Design    FilterDesign
	Pass      FilterPass
	Order     int
	Frequency float64
	// Ripple is the pass band ripple of Chebyshev filters in dB.
	Ripple float64
	// Coefficients are used by custom filters.
	Coefficients biquad.Coefficients
	Gain         float64
}

// DefaultFilterConfig returns a 4th order Butterworth low pass at 10 Hz.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Design:    Butterworth,
		Pass:      LowPass,
		Order:     4,
		Frequency: 10,
		Ripple:    1,
		Coefficients: biquad.Coefficients{
			B0: 1,
		},
		Gain: 1,
	}
}

// Validate checks the config independent of a sample rate.
func (c FilterConfig) Validate() error {
	if c.Design == CustomFilter {
		return nil
	}
	if c.Order < 1 {
		return fmt.Errorf("order %d: %w", c.Order, ErrInvalidFilter)
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency %v: %w", c.Frequency, ErrInvalidFilter)
	}
	if c.Design == Chebyshev && c.Ripple <= 0 {
		return fmt.Errorf("ripple %v: %w", c.Ripple, ErrInvalidFilter)
	}
	return nil
}

// coefficients designs the filter for a sample rate.
func (c FilterConfig) coefficients(sampleRate float64) ([]biquad.Coefficients, error) {
	if c.Design == CustomFilter {
		return []biquad.Coefficients{c.Coefficients}, nil
	}
	if c.Frequency >= sampleRate/2 {
		return nil, fmt.Errorf("frequency %v above nyquist of %v Hz: %w", c.Frequency, sampleRate, ErrInvalidFilter)
	}
	var coeffs []biquad.Coefficients
	switch {
	case c.Design == Butterworth && c.Pass == LowPass:
		coeffs = design.ButterworthLP(c.Frequency, c.Order, sampleRate)
	case c.Design == Butterworth && c.Pass == HighPass:
		coeffs = design.ButterworthHP(c.Frequency, c.Order, sampleRate)
	case c.Design == Chebyshev && c.Pass == LowPass:
		coeffs = design.Chebyshev1LP(c.Frequency, c.Order, c.Ripple, sampleRate)
	case c.Design == Chebyshev && c.Pass == HighPass:
		coeffs = design.Chebyshev1HP(c.Frequency, c.Order, c.Ripple, sampleRate)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%v: %w", c.Design, ErrInvalidFilter)
	}
	return coeffs, nil
}

// topologyChanged returns true if the change requires new filters. The
// gain can be changed on running filters.
func (c FilterConfig) topologyChanged(other FilterConfig) bool {
	other.Gain = c.Gain
	return c != other
}

// biquadProcessor filters one channel.
type biquadProcessor struct {
	config FilterConfig
	chain  *biquad.Chain
	// unstable is set once the output exploded, the filter then outputs 0.
	unstable bool
}

func (p *biquadProcessor) Setup(sampleRate float64) error {
	coeffs, err := p.config.coefficients(sampleRate)
	if err != nil {
		return err
	}
	p.chain = biquad.NewChain(coeffs, biquad.WithGain(p.config.Gain))
	p.unstable = false
	return nil
}

func (p *biquadProcessor) Process(v float64) float64 {
	if p.unstable {
		return 0
	}
	out := p.chain.ProcessSample(v)
	if math.IsNaN(out) || math.Abs(out) > unstableLimit {
		p.unstable = true
		return 0
	}
	return out
}

func (p *biquadProcessor) Reset() {
	p.unstable = false
	if p.chain != nil {
		p.chain.Reset()
	}
}

// BiquadFilter filters every input channel with a cascade of biquads.
type BiquadFilter struct {
	processor
	node   *Node
	config FilterConfig
}

// NewBiquadFilter returns biquad filter node behavior.
func NewBiquadFilter(config FilterConfig) *BiquadFilter {
	f := &BiquadFilter{config: config}
	f.newProcessor = func() ChannelProcessor {
		return &biquadProcessor{config: f.config}
	}
	return f
}

// Kind implements Behavior.
func (*BiquadFilter) Kind() Kind { return KindProcessor }

// TypeName implements Behavior.
func (*BiquadFilter) TypeName() string { return "biquad filter" }

// Init implements Initializable.
func (f *BiquadFilter) Init(n *Node) {
	f.node = n
	f.initPorts(n)
}

// Config returns the current config.
func (f *BiquadFilter) Config() FilterConfig {
	return f.config
}

// SetConfig validates and applies a new config. Filters restart on the
// next ReInit if more than the gain changed.
func (f *BiquadFilter) SetConfig(config FilterConfig) error {
	if err := config.Validate(); err != nil {
		f.node.SetError(ErrorInvalidFilter, err.Error())
		return err
	}
	f.node.ClearError(ErrorInvalidFilter)
	restart := f.config.topologyChanged(config)
	f.config = config
	if restart {
		f.node.ResetAsync()
		return nil
	}
	for _, proc := range f.processors {
		bp := proc.(*biquadProcessor)
		bp.config = config
		if bp.chain != nil {
			bp.chain.SetGain(config.Gain)
		}
	}
	return nil
}

// Start sets up the filters, design errors keep the node stopped.
func (f *BiquadFilter) Start(n *Node, elapsed float64) error {
	if err := f.processor.Start(n, elapsed); err != nil {
		n.SetError(ErrorInvalidFilter, err.Error())
		return err
	}
	n.ClearError(ErrorInvalidFilter)
	return nil
}

// Update filters new samples and reports unstable filters.
func (f *BiquadFilter) Update(n *Node, elapsed, delta float64) {
	f.processor.Update(n, elapsed, delta)
	for _, proc := range f.processors {
		if proc.(*biquadProcessor).unstable {
			n.SetError(ErrorUnstableFilter, "Filter is unstable.")
			return
		}
	}
	n.ClearError(ErrorUnstableFilter)
}
