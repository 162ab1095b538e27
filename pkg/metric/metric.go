package metric

import "gonum.org/v1/gonum/stat"

// Mean calculates the arithmetic mean of the values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// IR is the information ratio of an IC series: mean over standard deviation.
func IR(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 {
		return 0
	}
	return mean / std
}

// HitRate is the share of strictly positive readings.
func HitRate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	hits := 0
	for _, v := range values {
		if v > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(values))
}
