package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var byteUnits = []string{"bytes", "Kb", "Mb", "Gb", "Tb"}

// FormatBytes renders a byte count in 1024 steps. Below 10 units one decimal
// is kept (dropped when it is zero), from 10 units on the value is an integer.
// The unit is chosen after rounding, so 1048575 is "1 Mb" and not "1024 Kb".
func FormatBytes(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	for {
		num, rounded := roundUnits(v)
		if rounded < 1024 || i == len(byteUnits)-1 {
			return num + " " + byteUnits[i]
		}
		v /= 1024
		i++
	}
}

func roundUnits(v float64) (string, float64) {
	if v < 10 {
		r := math.Round(v*10) / 10
		return strings.TrimSuffix(strconv.FormatFloat(r, 'f', 1, 64), ".0"), r
	}
	r := math.Round(v)
	return strconv.FormatFloat(r, 'f', 0, 64), r
}

// formatCapacity renders "used/total (ratio%)".
func formatCapacity(used, total *uint64) string {
	if used == nil || total == nil {
		return Placeholder
	}
	ratio := Placeholder
	if *total > 0 {
		ratio = strconv.FormatFloat(100*float64(*used)/float64(*total), 'f', 1, 64) + "%"
	}
	return fmt.Sprintf("%s/%s (%s)", FormatBytes(*used), FormatBytes(*total), ratio)
}

func formatDegrees(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', 7, 64) + "°"
}

func formatMeters(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + " m"
}

func formatStd(std []*float64, i int) string {
	if i >= len(std) {
		return Placeholder
	}
	return formatMeters(std[i])
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
