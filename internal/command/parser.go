package command

import (
	"strconv"
	"strings"
)

// ParseValues splits a run-loop input line into one integer per whitespace-separated word.
//
// Each word converts leniently: an optional sign followed by its leading digits, or 0 when
// the word does not start with a number ("4x" is 4, "x" is 0). Out-of-range results are
// later ignored by the die, so overflowing words also convert to 0.
//
// Postcondition: len(result) equals the number of words in line.
func ParseValues(line string) []int {
	words := strings.Fields(line)
	values := make([]int, len(words))
	for i, w := range words {
		values[i] = leadingInt(w)
	}
	return values
}

func leadingInt(word string) int {
	end := 0
	if end < len(word) && (word[end] == '+' || word[end] == '-') {
		end++
	}
	digits := end
	for end < len(word) && word[end] >= '0' && word[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(word[:end])
	if err != nil {
		return 0
	}
	return n
}
