package calc

// Slice is a contiguous run of rupture indices inside one group.
type Slice struct {
	Start int
	Stop  int
}

// Blocksize returns how many ruptures each task takes: the run total spread
// over the configured concurrency, rounded up.
func Blocksize(total, concurrent int) int {
	if concurrent < 1 {
		concurrent = 1
	}
	return total/concurrent + 1
}

// GenSlices cuts [0, n) into contiguous blocks of at most blocksize,
// preserving order.
func GenSlices(n, blocksize int) []Slice {
	if n <= 0 || blocksize <= 0 {
		return nil
	}
	var out []Slice
	for start := 0; start < n; start += blocksize {
		stop := start + blocksize
		if stop > n {
			stop = n
		}
		out = append(out, Slice{Start: start, Stop: stop})
	}
	return out
}
