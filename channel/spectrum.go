package channel

import "math"

// Spectrum is a sample of a frequency channel: magnitudes of equally spaced
// bins from 0 Hz (bin 0) up to MaxFrequency (last bin).
type Spectrum struct {
	MaxFrequency float64
	Bins         []float64
}

// NewSpectrum returns a spectrum with numBins zero bins.
func NewSpectrum(maxFrequency float64, numBins int) Spectrum {
	return Spectrum{
		MaxFrequency: maxFrequency,
		Bins:         make([]float64, numBins),
	}
}

// NumBins returns the number of bins.
func (s Spectrum) NumBins() int {
	return len(s.Bins)
}

// Bin returns the magnitude of the bin, 0 for bins out of range.
func (s Spectrum) Bin(index int) float64 {
	if index < 0 || index >= len(s.Bins) {
		return 0
	}
	return s.Bins[index]
}

// Frequency returns the center frequency of the bin.
func (s Spectrum) Frequency(index int) float64 {
	switch len(s.Bins) {
	case 0:
		return 0
	case 1:
		return s.MaxFrequency
	}
	return float64(index) / float64(len(s.Bins)-1) * s.MaxFrequency
}

// BinIndex returns the bin that holds the frequency.
func (s Spectrum) BinIndex(frequency float64) int {
	if len(s.Bins) == 0 {
		return int(InvalidIndex)
	}
	if frequency <= 0 || s.MaxFrequency == 0 {
		return 0
	}
	if frequency >= s.MaxFrequency {
		return len(s.Bins) - 1
	}
	return int(frequency / s.MaxFrequency * float64(len(s.Bins)-1))
}

// DominantFrequency returns the frequency of the strongest bin within the
// range. The DC bin is ignored.
func (s Spectrum) DominantFrequency(minFrequency, maxFrequency float64) float64 {
	dominant := -1
	magnitude := 0.0
	for i := 1; i < len(s.Bins); i++ {
		f := s.Frequency(i)
		if f < minFrequency || f > maxFrequency {
			continue
		}
		if s.Bins[i] > magnitude {
			dominant = i
			magnitude = s.Bins[i]
		}
	}
	if dominant < 0 {
		return 0
	}
	return s.Frequency(dominant)
}

// MaxBin returns the largest magnitude within [start, end]. Both zero
// means the whole spectrum.
func (s Spectrum) MaxBin(start, end int) float64 {
	if start == 0 && end == 0 {
		end = len(s.Bins) - 1
	}
	result := math.Inf(-1)
	for i := start; i <= end && i < len(s.Bins); i++ {
		result = math.Max(result, s.Bins[i])
	}
	if math.IsInf(result, -1) {
		return 0
	}
	return result
}

// MemorySize returns the number of bytes used by the bins.
func (s Spectrum) MemorySize() int {
	return len(s.Bins) * 8
}
