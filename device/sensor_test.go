package device_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuromore/engine/device"
)

func queue(s *device.Sensor, n int, v float64) {
	for i := 0; i < n; i++ {
		s.AddQueuedSample(v)
	}
}

func TestSensorForward(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	queue(s, 5, 1)
	assert.Equal(t, 5, s.NumQueuedSamples())

	s.Update(0.5, 0.5)
	assert.Equal(t, 0, s.NumQueuedSamples())
	assert.Equal(t, int64(5), s.Input().SampleCounter())
	assert.Equal(t, int64(5), s.Output().SampleCounter())
	assert.Equal(t, 5, s.LastBurstSize())
	assert.Equal(t, "EEG", s.Output().Name())
	assert.Equal(t, "EEG", s.Input().Name())
	assert.True(t, s.Input().IsIndependent())
	assert.InDelta(t, 10, s.RealSampleRate(), 1e-9)
}

func TestSensorConcurrentQueue(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue(s, 25, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, s.NumQueuedSamples())
}

func TestSensorDriftCorrection(t *testing.T) {
	tests := []struct {
		name     string
		queued   int
		elapsed  float64
		disabled bool
		added    int
		removed  int
		syncs    int
	}{
		{
			name:    "late device",
			queued:  10,
			elapsed: 3,
			added:   10,
		},
		{
			name:    "early device",
			queued:  30,
			elapsed: 2,
			removed: 8,
		},
		{
			name:    "sync limit",
			queued:  10,
			elapsed: 3.5,
			syncs:   1,
		},
		{
			name:    "not enough signal",
			queued:  10,
			elapsed: 1.5,
		},
		{
			name:     "disabled",
			queued:   10,
			elapsed:  3,
			disabled: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := device.NewStaticContext()
			s := device.NewSensor("EEG", 10, 10)
			s.SetContext(ctx)
			s.SetDriftCorrectionEnabled(!test.disabled)

			queue(s, test.queued, 1)
			s.Update(test.elapsed, test.elapsed)

			assert.Equal(t, test.added, s.NumDriftSamplesAdded())
			assert.Equal(t, test.removed, s.NumDriftSamplesRemoved())
			assert.Equal(t, test.syncs, ctx.SyncRequests)
			assert.Equal(t, int64(test.queued+test.added-test.removed), s.Input().SampleCounter())
		})
	}
}

func TestSensorDrift(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	queue(s, 10, 1)
	s.Update(3, 3)
	assert.Equal(t, 20, s.CalculateDrift())
}

func TestSensorSync(t *testing.T) {
	t.Run("padding", func(t *testing.T) {
		s := device.NewSensor("EEG", 10, 10)
		s.SetLatency(0.2)
		s.Sync(1, true)
		assert.Equal(t, int64(8), s.Output().SampleCounter())
		assert.Equal(t, 0.0, s.Output().LastSample())
	})
	t.Run("latency exceeds time", func(t *testing.T) {
		s := device.NewSensor("EEG", 10, 10)
		s.SetLatency(2)
		s.Sync(1, true)
		assert.Equal(t, int64(0), s.Output().SampleCounter())
	})
	t.Run("start time", func(t *testing.T) {
		s := device.NewSensor("EEG", 10, 10)
		s.Sync(1.5, false)
		assert.Equal(t, 1.5, s.Input().StartTime())
		assert.Equal(t, 1.5, s.Output().StartTime())
	})
}

func TestSensorBursts(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	for _, n := range []int{2, 0, 4, 6} {
		queue(s, n, 1)
		s.Update(0, 0.1)
	}
	assert.Equal(t, 6, s.LastBurstSize())
	assert.Equal(t, 6, s.FindMaxBurstSize())
	assert.InDelta(t, 4, s.CalculateAverageBurstSize(), 1e-9)
}

func TestSensorExpectedJitter(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	queue(s, 3, 1)
	s.Update(0.3, 0.3)
	assert.InDelta(t, 30, s.ExpectedJitter(), 1e-9)

	s.SetExpectedJitter(0.1)
	assert.Equal(t, 0.1, s.ExpectedJitter())
}

func TestSensorLostSamples(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	s.HandleLostSamples(3)
	assert.Equal(t, 3, s.NumLostSamples())
	assert.Equal(t, 3, s.NumQueuedSamples())

	s.Reset()
	assert.Equal(t, 0, s.NumLostSamples())
	assert.Equal(t, 0, s.NumQueuedSamples())
}

func TestSensorReset(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	queue(s, 5, 1)
	s.Update(0.5, 0.5)
	s.Reset()
	assert.Equal(t, int64(0), s.Input().SampleCounter())
	assert.Equal(t, int64(0), s.Output().SampleCounter())
	assert.Equal(t, 0, s.FindMaxBurstSize())
}

func TestContactQuality(t *testing.T) {
	s := device.NewSensor("EEG", 10, 10)
	assert.False(t, s.HasContactQuality())
	s.SetContactQuality(device.ContactGood)
	assert.True(t, s.HasContactQuality())
	assert.Equal(t, "Good", s.ContactQuality().String())
	assert.Equal(t, "No Signal", device.ContactNoSignal.String())
}
