package enums

import "fmt"

// LabelKind distinguishes the shipping labels attached to an order.
type LabelKind string

const (
	LabelKindInbound LabelKind = "inbound"
	LabelKindReturn  LabelKind = "return"
)

var validLabelKinds = []LabelKind{
	LabelKindInbound,
	LabelKindReturn,
}

// String implements fmt.Stringer.
func (l LabelKind) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LabelKind.
func (l LabelKind) IsValid() bool {
	for _, candidate := range validLabelKinds {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLabelKind converts raw input into a LabelKind.
func ParseLabelKind(value string) (LabelKind, error) {
	for _, candidate := range validLabelKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid label kind %q", value)
}
