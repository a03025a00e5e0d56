package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// LabelMap maps dense class indices, starting at 0, to class labels.
type LabelMap map[int]string

// Label returns the label for idx, or Unknown_Class_<idx> when the mapping lacks it.
func (m LabelMap) Label(idx int) string {
	if label, ok := m[idx]; ok {
		return label
	}
	return fmt.Sprintf("Unknown_Class_%d", idx)
}

// Validate enforces dense keys from 0 and unique, non-empty labels.
func (m LabelMap) Validate() error {
	seen := make(map[string]int, len(m))
	for i := 0; i < len(m); i++ {
		label, ok := m[i]
		if !ok {
			return fmt.Errorf("label map is not dense: missing index %d", i)
		}
		if label == "" {
			return fmt.Errorf("label map: empty label at index %d", i)
		}
		if prev, dup := seen[label]; dup {
			return fmt.Errorf("label map: %q used by index %d and %d", label, prev, i)
		}
		seen[label] = i
	}
	return nil
}

// LoadLabels reads a JSON object of the form {"0": "label", "1": "label"}.
func LoadLabels(path string) (LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes and validates a JSON label map.
func ParseLabels(data []byte) (LabelMap, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode labels: %w", err)
	}

	labels := make(LabelMap, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid class index %q", k)
		}
		labels[idx] = v
	}
	if err := labels.Validate(); err != nil {
		return nil, err
	}
	return labels, nil
}

// DefaultLeafLabels is the class order of the bundled leaf disease model.
// It is used when a leaf model ships without its mapping file.
func DefaultLeafLabels() LabelMap {
	return LabelMap{
		0: "Pepper__bell___Bacterial_spot",
		1: "Pepper__bell___healthy",
		2: "Potato___Early_blight",
		3: "Potato___Late_blight",
		4: "Potato___healthy",
		5: "Tomato_Bacterial_spot",
		6: "Tomato_Early_blight",
		7: "Tomato_Late_blight",
		8: "Tomato_Leaf_Mold",
		9: "Tomato_healthy",
	}
}
