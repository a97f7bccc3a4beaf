package service

import "strings"

// Average adult reading speed in words per minute.
const wordsPerMinute = 225

// EstimateReadingTime returns the estimated minutes needed to read body,
// rounded up to the nearest whole minute.
func EstimateReadingTime(body string) int {
	words := len(strings.Fields(body))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
