package server

import (
	"fmt"
	"strings"
)

const (
	maxNameLength     = 40
	maxPoolNameLength = 60
)

func validatePlayerName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", validationError("El nombre del jugador es requerido")
	}
	if len(trimmed) > maxNameLength {
		return "", validationError(fmt.Sprintf("El nombre debe tener %d caracteres o menos", maxNameLength))
	}
	return trimmed, nil
}

func validatePoolName(label, name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", validationError(fmt.Sprintf("El nombre del %s es requerido", label))
	}
	if len(trimmed) > maxPoolNameLength {
		return "", validationError(fmt.Sprintf("El nombre del %s debe tener %d caracteres o menos", label, maxPoolNameLength))
	}
	return trimmed, nil
}

// normalizePoolNames trims, drops empties and case-insensitive
// duplicates, and enforces the configured minimum.
func normalizePoolNames(label string, names []string, min int) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	var clean []string
	for _, raw := range names {
		trimmed, err := validatePoolName(label, raw)
		if err != nil {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		clean = append(clean, trimmed)
	}
	if len(clean) < min {
		return nil, validationError(fmt.Sprintf("Debes proporcionar al menos %d %ss", min, label))
	}
	return clean, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}
