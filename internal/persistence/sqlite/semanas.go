package sqlite

import (
	"encoding/json"
	"fmt"
)

// encodeSemanas serialises a week set into its stored TEXT form. A nil set is
// stored as the empty JSON array, never NULL.
func encodeSemanas(semanas []int) (string, error) {
	if semanas == nil {
		semanas = []int{}
	}
	raw, err := json.Marshal(semanas)
	if err != nil {
		return "", fmt.Errorf("failed to encode semanas: %w", err)
	}
	return string(raw), nil
}

// decodeSemanas parses the stored TEXT form back into a week set. Empty or
// NULL columns decode to an empty set.
func decodeSemanas(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var semanas []int
	if err := json.Unmarshal([]byte(raw), &semanas); err != nil {
		return nil, fmt.Errorf("failed to decode semanas: %w", err)
	}
	if semanas == nil {
		semanas = []int{}
	}
	return semanas, nil
}
