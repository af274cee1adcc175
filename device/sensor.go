package device

import (
	"math"
	"sync"

	"github.com/rs/xid"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/resample"
	"github.com/neuromore/engine/signal"
)

const (
	// sensorBufferSize is the number of samples input and output hold.
	sensorBufferSize = 2048
	// burstHistory is the number of updates burst sizes are kept for.
	burstHistory = 200

	// drift correction waits for this much signal before it starts.
	minDriftDuration = 2.0
	minDriftSamples  = 10
)

// ContactQuality is the electrode contact quality a sensor reports.
type ContactQuality int

// Contact qualities.
const (
	ContactNotAvailable ContactQuality = iota
	ContactNoSignal
	ContactVeryBad
	ContactPoor
	ContactFair
	ContactGood
)

func (q ContactQuality) String() string {
	switch q {
	case ContactNotAvailable:
		return "n/a"
	case ContactVeryBad:
		return "Very Bad"
	case ContactPoor:
		return "Poor"
	case ContactFair:
		return "Fair"
	case ContactGood:
		return "Good"
	}
	return "No Signal"
}

// Sensor carries one signal of a device. Drivers push raw values with
// AddQueuedSample from any goroutine. Update moves them into the input
// channel and resamples them onto the engine timeline in the output
// channel.
type Sensor struct {
	id         string
	ctx        Context
	input      *channel.Channel[float64]
	resampler  *resample.Processor
	sampleRate float64

	enabled         bool
	hardwareChannel int
	contactQuality  ContactQuality
	latency         float64
	expectedJitter  float64

	mu     sync.Mutex
	queued []float64

	driftCorrection        bool
	realSampleRate         float64
	numDriftSamplesAdded   int
	numDriftSamplesRemoved int
	numLostSamples         int

	// bursts holds the number of samples received per update, newest last.
	bursts [burstHistory]int
}

// NewSensor returns a sensor whose output runs at sampleRate. The input
// runs at inputRate, 0 marks an irregular input.
func NewSensor(name string, sampleRate, inputRate float64) *Sensor {
	s := &Sensor{
		id:              xid.New().String(),
		input:           channel.New[float64](inputRate, sensorBufferSize),
		resampler:       resample.New(sensorBufferSize),
		sampleRate:      sampleRate,
		enabled:         true,
		hardwareChannel: -1,
		driftCorrection: true,
		queued:          make([]float64, 0, sensorBufferSize),
	}
	// device clock is not the engine clock
	s.input.SetIndependent(true)

	s.resampler.SetInput(s.input)
	s.resampler.SetResampleMode(resample.Realtime)
	s.resampler.SetTargetSampleRate(sampleRate)
	s.resampler.ReInit()

	channel.CopyMetadata(s.Output(), s.input)
	s.SetName(name)
	return s
}

// ID returns unique id of the sensor.
func (s *Sensor) ID() string {
	return s.id
}

// SetContext provides the engine settings used for drift correction.
func (s *Sensor) SetContext(ctx Context) {
	s.ctx = ctx
}

// Input returns the raw channel.
func (s *Sensor) Input() *channel.Channel[float64] {
	return s.input
}

// Output returns the resampled channel nodes read from.
func (s *Sensor) Output() *channel.Channel[float64] {
	return s.resampler.Output()
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.Output().Name()
}

// SetName names both channels.
func (s *Sensor) SetName(name string) {
	s.Output().SetName(name)
	s.input.SetName(name)
}

// IsEnabled returns false for sensors a device config switched off.
func (s *Sensor) IsEnabled() bool {
	return s.enabled
}

// SetEnabled enables or disables the sensor.
func (s *Sensor) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// HardwareChannel returns the index of the channel on the hardware, -1 if
// unknown.
func (s *Sensor) HardwareChannel() int {
	return s.hardwareChannel
}

// SetHardwareChannel sets the index of the channel on the hardware.
func (s *Sensor) SetHardwareChannel(i int) {
	s.hardwareChannel = i
}

// ContactQuality returns the last reported contact quality.
func (s *Sensor) ContactQuality() ContactQuality {
	return s.contactQuality
}

// SetContactQuality sets the contact quality.
func (s *Sensor) SetContactQuality(q ContactQuality) {
	s.contactQuality = q
}

// HasContactQuality returns true if the device reports contact quality.
func (s *Sensor) HasContactQuality() bool {
	return s.contactQuality != ContactNotAvailable
}

// SampleRate returns the output sample rate.
func (s *Sensor) SampleRate() float64 {
	return s.sampleRate
}

// SetSampleRate changes the output sample rate. The input rate stays.
func (s *Sensor) SetSampleRate(rate float64) {
	s.sampleRate = rate
	s.resampler.SetTargetSampleRate(rate)
	s.resampler.ReInit()
	s.Output().SetSampleRate(rate)
}

// RealSampleRate returns the measured input sample rate.
func (s *Sensor) RealSampleRate() float64 {
	return s.realSampleRate
}

// Latency returns the sample latency in seconds.
func (s *Sensor) Latency() float64 {
	return s.latency
}

// SetLatency sets the sample latency in seconds.
func (s *Sensor) SetLatency(latency float64) {
	s.latency = latency
}

// ExpectedJitter returns the jitter tolerated before drift correction
// kicks in. Without explicit value it is derived from the burst size.
func (s *Sensor) ExpectedJitter() float64 {
	if s.expectedJitter == 0 {
		return float64(s.FindMaxBurstSize()) * s.sampleRate
	}
	return s.expectedJitter
}

// SetExpectedJitter sets the tolerated jitter in seconds.
func (s *Sensor) SetExpectedJitter(seconds float64) {
	s.expectedJitter = seconds
}

// AddQueuedSample queues a raw value. Safe for concurrent use.
func (s *Sensor) AddQueuedSample(v float64) {
	s.mu.Lock()
	s.queued = append(s.queued, v)
	s.mu.Unlock()
}

// NumQueuedSamples returns the number of values waiting for Update.
func (s *Sensor) NumQueuedSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued)
}

// ClearQueuedSamples drops all values waiting for Update.
func (s *Sensor) ClearQueuedSamples() {
	s.mu.Lock()
	s.queued = s.queued[:0]
	s.mu.Unlock()
}

// HandleLostSamples fills samples lost in transmission with zeros.
func (s *Sensor) HandleLostSamples(n int) {
	for i := 0; i < n; i++ {
		s.AddQueuedSample(0)
	}
	s.numLostSamples += n
}

// NumLostSamples returns the number of samples filled by HandleLostSamples.
func (s *Sensor) NumLostSamples() int {
	return s.numLostSamples
}

// NumDriftSamplesAdded returns the number of samples drift correction
// repeated.
func (s *Sensor) NumDriftSamplesAdded() int {
	return s.numDriftSamplesAdded
}

// NumDriftSamplesRemoved returns the number of samples drift correction
// dropped.
func (s *Sensor) NumDriftSamplesRemoved() int {
	return s.numDriftSamplesRemoved
}

// SetDriftCorrectionEnabled toggles drift correction for this sensor.
func (s *Sensor) SetDriftCorrectionEnabled(enabled bool) {
	s.driftCorrection = enabled
}

// IsDriftCorrectionEnabled returns the sensor drift correction flag.
func (s *Sensor) IsDriftCorrectionEnabled() bool {
	return s.driftCorrection
}

// Update moves queued values into the input, resamples them and corrects
// the clock drift of the device.
func (s *Sensor) Update(elapsed, delta float64) {
	s.input.UpdateActivity(delta)

	s.mu.Lock()
	numQueued := len(s.queued)
	s.input.BeginAddSamples()
	for _, v := range s.queued {
		s.input.AddSample(v)
	}
	s.queued = s.queued[:0]
	s.mu.Unlock()

	s.resampler.Update(elapsed, delta)

	output := s.Output()
	output.SetElapsedTime(elapsed)
	s.input.SetElapsedTime(elapsed)
	output.UpdateLatency()
	s.input.UpdateLatency()

	copy(s.bursts[:], s.bursts[1:])
	s.bursts[burstHistory-1] = numQueued

	if realElapsed := s.input.ElapsedTime(); realElapsed > 0 {
		s.realSampleRate = float64(s.input.SampleCounter()) / realElapsed
	}

	if s.driftCorrection && s.ctx != nil && s.ctx.DriftCorrection().Enabled {
		s.correctForDrift()
	}
}

// Reset clears channels, queue and statistics.
func (s *Sensor) Reset() {
	s.Output().Reset()
	s.ClearQueuedSamples()
	s.input.Reset()
	s.bursts = [burstHistory]int{}
	s.numDriftSamplesAdded = 0
	s.numDriftSamplesRemoved = 0
	s.numLostSamples = 0
	s.resampler.ReInit()
}

// SetStartTime moves both channels and the resampler clock to t.
func (s *Sensor) SetStartTime(t float64) {
	s.resampler.SetStartTime(t)
	s.input.SetStartTime(t)
}

// Sync aligns the sensor with the engine timeline at t. With padding the
// output is filled with zeros up to t minus latency, otherwise the start
// time is moved to t.
func (s *Sensor) Sync(t float64, usePadding bool) {
	if !usePadding {
		s.SetStartTime(t)
		return
	}
	n := signal.SamplesOf(s.sampleRate, t-s.latency)
	output := s.Output()
	for i := 0; i < n; i++ {
		output.AddSample(0)
	}
}

// LastBurstSize returns the number of samples received in the last update.
func (s *Sensor) LastBurstSize() int {
	return s.bursts[burstHistory-1]
}

// FindMaxBurstSize returns the biggest burst of the recent updates.
func (s *Sensor) FindMaxBurstSize() int {
	max := 0
	for _, b := range s.bursts {
		if b > max {
			max = b
		}
	}
	return max
}

// CalculateAverageBurstSize returns the mean size of the recent non empty
// bursts.
func (s *Sensor) CalculateAverageBurstSize() float64 {
	sum, num := 0, 0
	for _, b := range s.bursts {
		if b == 0 {
			continue
		}
		sum += b
		num++
	}
	if num == 0 {
		return 0
	}
	return float64(sum) / float64(num)
}

// CalculateDrift returns how many samples the output lags behind the
// elapsed time. Negative values mean the device runs ahead.
func (s *Sensor) CalculateDrift() int {
	theoretical := int64(s.Output().ElapsedTime() * s.sampleRate)
	return int(theoretical - s.Output().SampleCounter())
}

// correctForDrift repeats or drops input samples so the output follows the
// engine clock. Beyond the sync limit an engine sync is requested instead.
func (s *Sensor) correctForDrift() {
	output := s.Output()
	target := output.SampleRate()
	if target <= 0 {
		return
	}
	if output.ElapsedTime() < minDriftDuration || output.SampleCounter() < minDriftSamples {
		return
	}

	drift := s.CalculateDrift()
	driftAbs := drift
	if driftAbs < 0 {
		driftAbs = -driftAbs
	}
	driftSeconds := float64(drift) / target
	settings := s.ctx.DriftCorrection()

	if math.Abs(driftSeconds) > settings.MaxDriftUntilSync && s.ctx.AutoSync() {
		s.ctx.SyncAsync()
		return
	}
	// drift below one sample interval can't be corrected
	if math.Abs(driftSeconds) < 1/target {
		return
	}

	switch {
	case driftSeconds > settings.MaxBackwardDrift:
		n := minInt(driftAbs, int((driftSeconds-settings.MaxBackwardDrift)*target))
		last := s.input.LastSample()
		for i := 0; i < n; i++ {
			s.input.AddSample(last)
		}
		s.numDriftSamplesAdded += n
	case driftSeconds < -settings.MaxForwardDrift:
		// never remove more than the last update added
		n := minInt(int((-driftSeconds-settings.MaxForwardDrift)*target), s.LastBurstSize())
		n = minInt(n, driftAbs)
		for i := 0; i < n; i++ {
			s.input.RemoveLastSample()
		}
		s.numDriftSamplesRemoved += n
	}
}

// MemoryAllocated returns the bytes reserved by the output channel.
func (s *Sensor) MemoryAllocated() int {
	return s.Output().MemoryAllocated()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
