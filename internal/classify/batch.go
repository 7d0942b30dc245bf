package classify

// Chunk splits units into fixed-size batches. The number of batches is
// ceil(len(units)/size) and concatenating them in order reproduces units.
func Chunk(units []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	if len(units) == 0 {
		return nil
	}

	batches := make([][]string, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, units[start:end])
	}
	return batches
}
