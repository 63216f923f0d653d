package tickmath

// TicksPerArray is the tick span covered by one tick array.
func TicksPerArray(tickSpacing uint16) int32 {
	return int32(tickSpacing) * TickArraySize
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int32) int32 {
	return -floorDiv(-a, b)
}

// StartTickIndex returns the start tick of the array holding tick, shifted by offset arrays.
// A zero spacing has no arrays and yields 0.
func StartTickIndex(tick int32, tickSpacing uint16, offset int32) int32 {
	per := TicksPerArray(tickSpacing)
	if per == 0 {
		return 0
	}
	return (floorDiv(tick, per) + offset) * per
}

// IsValidStartTickIndex reports whether start is the first tick of some tick array for the spacing.
func IsValidStartTickIndex(start int32, tickSpacing uint16) bool {
	if tickSpacing == 0 {
		return false
	}
	per := TicksPerArray(tickSpacing)
	if start%per != 0 {
		return false
	}
	return start >= StartTickIndex(MinTick, tickSpacing, 0) && start <= StartTickIndex(MaxTick, tickSpacing, 0)
}

// NearestValidTick rounds tick to the nearest multiple of the spacing inside the usable range.
func NearestValidTick(tick int32, tickSpacing uint16) int32 {
	s := int32(tickSpacing)
	if s <= 0 {
		return clampTick(tick)
	}
	q := floorDiv(tick, s)
	if 2*(tick-q*s) >= s {
		q++
	}
	rounded := q * s
	lo := ceilDiv(MinTick, s) * s
	hi := floorDiv(MaxTick, s) * s
	if rounded < lo {
		return lo
	}
	if rounded > hi {
		return hi
	}
	return rounded
}

// SwapTickArrayStartIndexes returns the start ticks of up to three arrays a swap from tick
// traverses, in traversal order. B to A swaps look one spacing ahead so a price sitting on an
// array's last tick still starts in the next array.
func SwapTickArrayStartIndexes(tick int32, tickSpacing uint16, aToB bool) []int32 {
	if tickSpacing == 0 {
		return nil
	}
	shift := int32(0)
	step := int32(-1)
	if !aToB {
		shift = int32(tickSpacing)
		step = 1
	}
	starts := make([]int32, 0, 3)
	for i := int32(0); i < 3; i++ {
		start := StartTickIndex(tick+shift, tickSpacing, i*step)
		if !IsValidStartTickIndex(start, tickSpacing) {
			break
		}
		starts = append(starts, start)
	}
	return starts
}
