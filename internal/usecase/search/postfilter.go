package search

import "github.com/kailas-cloud/chunkdex/internal/domain/search/result"

// withinHorizon keeps hits no farther than horizon.
func withinHorizon(hits []result.Hit, horizon float64) []result.Hit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.Distance() <= horizon {
			out = append(out, h)
		}
	}
	return out
}

// autoLimit splits distance-ordered hits into groups at every gap wider than
// the mean gap and keeps the first groups. groups <= 0 keeps everything.
func autoLimit(hits []result.Hit, groups int) []result.Hit {
	if groups <= 0 || len(hits) < 2 {
		return hits
	}
	n := len(hits)
	mean := (hits[n-1].Distance() - hits[0].Distance()) / float64(n-1)

	seen := 1
	for i := 0; i < n-1; i++ {
		if hits[i+1].Distance()-hits[i].Distance() > mean {
			if seen == groups {
				return hits[:i+1]
			}
			seen++
		}
	}
	return hits
}
