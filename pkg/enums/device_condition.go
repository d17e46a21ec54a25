package enums

import "fmt"

// DeviceCondition is the customer's self-reported device grade.
type DeviceCondition string

const (
	DeviceConditionFlawless DeviceCondition = "flawless"
	DeviceConditionGood     DeviceCondition = "good"
	DeviceConditionFair     DeviceCondition = "fair"
	DeviceConditionDamaged  DeviceCondition = "damaged"
	DeviceConditionNoPower  DeviceCondition = "no_power"
)

var validDeviceConditions = []DeviceCondition{
	DeviceConditionFlawless,
	DeviceConditionGood,
	DeviceConditionFair,
	DeviceConditionDamaged,
	DeviceConditionNoPower,
}

// String implements fmt.Stringer.
func (d DeviceCondition) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeviceCondition.
func (d DeviceCondition) IsValid() bool {
	for _, candidate := range validDeviceConditions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeviceCondition converts raw input into a DeviceCondition.
func ParseDeviceCondition(value string) (DeviceCondition, error) {
	for _, candidate := range validDeviceConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device condition %q", value)
}
