package service

import (
	"strconv"
	"strings"
)

// LevelText форматирует уровень: 10 знаков после точки, без хвостовых нулей.
// 1.23 -> "1.23", 100 -> "100".
func LevelText(level float64) string {
	s := strconv.FormatFloat(level, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
