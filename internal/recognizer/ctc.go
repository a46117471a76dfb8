package recognizer

// argmax returns the index of the largest value, or -1 for an empty slice.
func argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// CTCCollapse drops blanks and merges repeated classes. A blank between two
// equal classes keeps both.
func CTCCollapse(indices []int, blank int) []int {
	out := make([]int, 0, len(indices))
	prev := -1
	for _, idx := range indices {
		if idx != blank && idx != prev {
			out = append(out, idx)
		}
		prev = idx
	}
	return out
}

// DecodeCTCGreedy takes the best class per time step of each batch item and
// collapses the path. shape is [N, T, C], or [N, C, T] when classesFirst;
// trailing unit dimensions are ignored.
func DecodeCTCGreedy(logits []float32, shape []int64, blank int, classesFirst bool) [][]int {
	dims := trimUnitDims(shape)
	if len(dims) != 3 || dims[0] <= 0 {
		return nil
	}
	n := int(dims[0])
	steps, classes := int(dims[1]), int(dims[2])
	if classesFirst {
		steps, classes = classes, steps
	}
	if steps <= 0 || classes <= 0 || len(logits) < n*steps*classes {
		return nil
	}

	out := make([][]int, n)
	scores := make([]float32, classes)
	for b := range n {
		base := b * steps * classes
		path := make([]int, steps)
		for t := range steps {
			if classesFirst {
				for k := range classes {
					scores[k] = logits[base+k*steps+t]
				}
				path[t] = argmax(scores)
			} else {
				off := base + t*classes
				path[t] = argmax(logits[off : off+classes])
			}
		}
		out[b] = CTCCollapse(path, blank)
	}
	return out
}

// classesFirst reports whether the class axis precedes the time axis, given
// the expected number of classes.
func classesFirst(shape []int64, classes int) bool {
	dims := trimUnitDims(shape)
	if len(dims) != 3 {
		return false
	}
	return int(dims[2]) != classes && int(dims[1]) == classes
}

func trimUnitDims(shape []int64) []int64 {
	dims := shape
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	return dims
}
