package scoring

// Score distribution buckets. A score belongs to the first bucket whose
// ceiling it does not exceed.
var scoreBuckets = []struct {
	label   string
	ceiling float64
}{
	{"0-20", 20},
	{"21-40", 40},
	{"41-60", 60},
	{"61-80", 80},
	{"81-100", 100},
}

// ScoreBuckets returns the bucket labels in ascending order.
func ScoreBuckets() []string {
	labels := make([]string, len(scoreBuckets))
	for i, b := range scoreBuckets {
		labels[i] = b.label
	}
	return labels
}

// ScoreBucket maps a total score to its distribution bucket.
func ScoreBucket(total float64) string {
	for _, b := range scoreBuckets {
		if total <= b.ceiling {
			return b.label
		}
	}
	return scoreBuckets[len(scoreBuckets)-1].label
}
