package audio

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Downmix averages all channels into one. Mono input is returned as is.
func Downmix(w *Waveform) *Waveform {
	if w.Channels <= 1 {
		return w
	}

	frames := len(w.Samples) / w.Channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < w.Channels; ch++ {
			sum += w.Samples[i*w.Channels+ch]
		}
		mono[i] = sum / float64(w.Channels)
	}

	return &Waveform{
		SampleRate: w.SampleRate,
		Channels:   1,
		Samples:    mono,
	}
}

// NormalizePeak scales samples so the loudest one sits at full scale.
// Silent audio is returned unchanged.
func NormalizePeak(w *Waveform) *Waveform {
	var peak float64
	for _, s := range w.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return w
	}

	scaled := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		scaled[i] = s / peak
	}

	return &Waveform{
		SampleRate: w.SampleRate,
		Channels:   w.Channels,
		Samples:    scaled,
	}
}

// Normalize reads a WAV file, downmixes it to mono, peak-normalizes it and
// writes the result to outPath. The sample rate is preserved.
func Normalize(inPath, outPath string) error {
	w, err := ReadWAV(inPath)
	if err != nil {
		return err
	}

	normalized := NormalizePeak(Downmix(w))

	logrus.WithFields(logrus.Fields{
		"input":    inPath,
		"output":   outPath,
		"rate":     normalized.SampleRate,
		"duration": normalized.Duration(),
	}).Debug("Audio normalized")

	return WriteWAV(outPath, normalized)
}
