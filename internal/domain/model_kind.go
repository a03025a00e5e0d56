package domain

import "strings"

// ModelKind identifies which classifier and label mapping a request targets.
type ModelKind string

const (
	ModelKindFruit ModelKind = "fruit"
	ModelKindLeaf  ModelKind = "leaf"
)

// LegacyModelKind is assumed for rows written before predictions carried a model kind.
const LegacyModelKind = ModelKindLeaf

// ParseModelKind normalizes a user supplied kind. It does not check availability.
func ParseModelKind(s string) ModelKind {
	return ModelKind(strings.ToLower(strings.TrimSpace(s)))
}

func (k ModelKind) String() string {
	return string(k)
}
