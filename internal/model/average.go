package model

import (
	"encoding/json"
	"fmt"
)

// NoAverage is the on-disk marker for an average that was never computed.
const NoAverage float32 = -1

// Average is an optional mean. The zero value is absent.
type Average struct {
	value float32
	set   bool
}

func AverageOf(v float32) Average {
	return Average{value: v, set: true}
}

// AverageFromSentinel decodes the on-disk representation.
func AverageFromSentinel(v float32) Average {
	if v == NoAverage {
		return Average{}
	}
	return AverageOf(v)
}

func (a Average) Value() (float32, bool) {
	return a.value, a.set
}

func (a Average) IsSet() bool {
	return a.set
}

// Sentinel returns the on-disk representation.
func (a Average) Sentinel() float32 {
	if !a.set {
		return NoAverage
	}
	return a.value
}

// Compare orders averages ascending. An absent average sorts below every
// present one.
func (a Average) Compare(b Average) int {
	switch {
	case !a.set && !b.set:
		return 0
	case !a.set:
		return -1
	case !b.set:
		return 1
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	}
	return 0
}

func (a Average) String() string {
	if !a.set {
		return "-"
	}
	return fmt.Sprintf("%.2f", a.value)
}

func (a Average) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

func (a *Average) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Average{}
		return nil
	}
	var v float32
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = AverageOf(v)
	return nil
}

func (a Average) inBounds() bool {
	return !a.set || GradeInBounds(a.value)
}
