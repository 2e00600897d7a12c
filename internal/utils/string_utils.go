package utils

import (
	"strings"
)

// ParseSymbols parses a comma-separated string of symbols
func ParseSymbols(symbolsParam string) []string {
	if symbolsParam == "" {
		return []string{}
	}

	symbols := strings.Split(symbolsParam, ",")
	var result []string

	for _, symbol := range symbols {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			result = append(result, strings.ToUpper(symbol))
		}
	}

	return result
}

// Float64Ptr returns a pointer to a float64 value
func Float64Ptr(f float64) *float64 {
	return &f
}

// Int64Ptr returns a pointer to an int64 value
func Int64Ptr(i int64) *int64 {
	return &i
}
