package logger

import (
	"fmt"
	"strings"
)

// Preview joins at most limit values and notes how many were left out.
func Preview(values []string, limit int) string {
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(values[:limit], ", "), len(values)-limit)
}
