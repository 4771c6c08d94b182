package utils

import (
	"strconv"
	"strings"
)

// StringToInt parses s, returning fallback when s is empty or not a number.
func StringToInt(s string, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return i
}
