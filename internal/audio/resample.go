package audio

import "math"

// Resample converts a whole clip between sample rates by linear
// interpolation. Used for the short feedback clips and for upsampling,
// where aliasing is not a concern; streaming capture downsampling goes
// through Downsampler instead.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(input) == 0 {
		return input
	}
	ratio := float64(toRate) / float64(fromRate)
	out := make([]float32, int(float64(len(input))*ratio))
	last := len(input) - 1
	for i := range out {
		pos := float64(i) / ratio
		j := int(pos)
		if j > last {
			j = last
		}
		k := j + 1
		if k > last {
			k = last
		}
		frac := float32(pos - float64(j))
		out[i] = input[j] + (input[k]-input[j])*frac
	}
	return out
}

// firTaps is the filter length for the capture-path downsampler: long
// enough to suppress aliasing below the noise floor of consumer
// microphones, short enough to stay cheap at 48kHz chunk rates.
const firTaps = 64

// Downsampler decimates a capture stream to a lower sample rate
// through a windowed-sinc low-pass filter, so energy above the output
// Nyquist frequency doesn't fold back into the band the VAD and the
// recognizer analyze. It carries filter state across chunks; one
// instance must only ever see one stream.
type Downsampler struct {
	ratio float64
	taps  []float32
	tail  []float32 // trailing input samples from the previous chunk
}

// NewDownsampler builds a downsampler from fromRate to toRate
// (fromRate > toRate). The filter cutoff sits at the output Nyquist
// frequency, Hamming-windowed and normalized to unity gain.
func NewDownsampler(fromRate, toRate int) *Downsampler {
	ratio := float64(toRate) / float64(fromRate)
	cutoff := 0.5 * ratio

	taps := make([]float32, firTaps)
	var sum float64
	for i := range taps {
		n := float64(i) - float64(firTaps-1)/2
		var h float64
		if n == 0 {
			h = 2 * cutoff
		} else {
			h = math.Sin(2*math.Pi*cutoff*n) / (math.Pi * n)
		}
		h *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(firTaps-1))
		sum += h
		taps[i] = float32(h)
	}
	for i := range taps {
		taps[i] = float32(float64(taps[i]) / sum)
	}

	return &Downsampler{
		ratio: ratio,
		taps:  taps,
		tail:  make([]float32, firTaps),
	}
}

// Process filters and decimates one chunk. The previous chunk's tail
// seeds the filter window so chunk boundaries don't click.
func (d *Downsampler) Process(input []float32) []float32 {
	if len(input) == 0 {
		return input
	}

	ext := make([]float32, 0, len(d.tail)+len(input))
	ext = append(ext, d.tail...)
	ext = append(ext, input...)

	out := make([]float32, int(float64(len(input))*d.ratio))
	for i := range out {
		center := int(float64(i)/d.ratio) + len(d.tail)
		var acc float32
		// The window ends at the current input sample, so it only ever
		// reads samples already in ext (this chunk plus the tail).
		for k, t := range d.taps {
			idx := center - (firTaps - 1) + k
			if idx >= 0 && idx < len(ext) {
				acc += ext[idx] * t
			}
		}
		out[i] = acc
	}

	if len(input) >= firTaps {
		copy(d.tail, input[len(input)-firTaps:])
	} else {
		copy(d.tail, d.tail[len(input):])
		copy(d.tail[firTaps-len(input):], input)
	}
	return out
}
