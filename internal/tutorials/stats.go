package tutorials

// AverageRating computes the mean score over the full, current rating set
// for one tutorial. The result is nil when the set is empty: "no rating"
// is distinct from a zero average. Callers must always pass the complete
// set; there is deliberately no incremental running sum anywhere.
func AverageRating(ratings []Rating) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	var sum int
	for _, r := range ratings {
		sum += r.Score
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}

// BuildStats derives the read-time statistics for one tutorial.
func BuildStats(ratings []Rating, commentCount int) Stats {
	return Stats{
		AverageRating: AverageRating(ratings),
		RatingCount:   len(ratings),
		CommentCount:  commentCount,
	}
}
