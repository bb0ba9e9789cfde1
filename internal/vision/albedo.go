package vision

import "sort"

const albedoInputSize = 224

// albedoBrightnessCeiling is the mean-brightness value above which the
// image is flagged as overexposed/flash-spoofed outright.
const albedoBrightnessCeiling = 200.0

// AlbedoResult carries the diagnostic statistics behind a live/spoof
// call, independent of the boolean verdict.
type AlbedoResult struct {
	IsLive          bool
	Brightness      float64
	ChannelMean     [3]float64
	ChannelVar      [3]float64
	Q25             [3]float64
	Q75             [3]float64
	UpperBound      [3]float64
	OutlierCount    [3]int
	OverexposedGate bool
}

// CheckAlbedo resizes the face to 224x224 and runs the channel-wise IQR
// outlier analysis plus brightness gate: overexposed images are spoof
// outright; otherwise a live verdict requires at least one outlier
// pixel in both the green and blue channels above mean+1.5*IQR.
func CheckAlbedo(face *Image) AlbedoResult {
	resized := face.Resize(albedoInputSize, albedoInputSize)
	n := albedoInputSize * albedoInputSize

	var channels [3][]float64
	for c := range channels {
		channels[c] = make([]float64, 0, n)
	}
	for y := 0; y < albedoInputSize; y++ {
		for x := 0; x < albedoInputSize; x++ {
			r, g, b, _ := resized.at(x, y)
			channels[0] = append(channels[0], float64(r))
			channels[1] = append(channels[1], float64(g))
			channels[2] = append(channels[2], float64(b))
		}
	}

	var result AlbedoResult
	var channelMeans [3]float64
	for c := 0; c < 3; c++ {
		channelMeans[c] = mean(channels[c])
		result.ChannelMean[c] = channelMeans[c]
		result.ChannelVar[c] = variance(channels[c], channelMeans[c])
	}
	result.Brightness = (channelMeans[0] + channelMeans[1] + channelMeans[2]) / 3

	if result.Brightness > albedoBrightnessCeiling {
		result.OverexposedGate = true
		result.IsLive = false
		return result
	}

	for c := 0; c < 3; c++ {
		q25, q75 := quartiles(channels[c])
		iqr := q75 - q25
		ub := channelMeans[c] + 1.5*iqr
		result.Q25[c], result.Q75[c], result.UpperBound[c] = q25, q75, ub

		count := 0
		for _, v := range channels[c] {
			if v > ub {
				count++
			}
		}
		result.OutlierCount[c] = count
	}

	result.IsLive = result.OutlierCount[1] > 0 && result.OutlierCount[2] > 0
	return result
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// quartiles computes Q25/Q75 via linear-interpolated quantile on the
// sorted channel.
func quartiles(values []float64) (q25, q75 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentile(sorted, 0.25), percentile(sorted, 0.75)
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
