package postprocess

// SelectTopK reorders dets so that dets[:k] holds the k highest-scoring
// detections, in no particular order. It is a quickselect over Hoare
// partitions and runs in expected linear time without allocating.
//
// k outside (0, len(dets)) leaves dets untouched.
func SelectTopK(dets []Detection, k int) {
	if k <= 0 || k >= len(dets) {
		return
	}

	// Invariant: everything before lo scores at least as high as anything in
	// [lo, hi], which scores at least as high as anything after hi.
	lo, hi := 0, len(dets)-1
	for lo < hi {
		p := partitionDescending(dets, lo, hi)
		if k-1 <= p {
			hi = p
		} else {
			lo = p + 1
		}
	}
}

// partitionDescending is a Hoare partition of dets[lo:hi+1] around the middle
// element's score. It returns p in [lo, hi) such that every score in [lo, p] is
// >= every score in [p+1, hi].
func partitionDescending(dets []Detection, lo, hi int) int {
	pivot := dets[lo+(hi-lo)/2].Score
	i, j := lo-1, hi+1
	for {
		for {
			i++
			if dets[i].Score <= pivot {
				break
			}
		}
		for {
			j--
			if dets[j].Score >= pivot {
				break
			}
		}
		if i >= j {
			return j
		}
		dets[i], dets[j] = dets[j], dets[i]
	}
}
