package whirlpool

import "fmt"

// Direction is the side of the pool a swap enters from.
type Direction uint8

const (
	DirectionAToB Direction = iota + 1
	DirectionBToA
)

func (d Direction) IsAToB() bool {
	return d == DirectionAToB
}

func (d Direction) Reverse() Direction {
	switch d {
	case DirectionAToB:
		return DirectionBToA
	case DirectionBToA:
		return DirectionAToB
	}
	return d
}

func (d Direction) Valid() bool {
	return d == DirectionAToB || d == DirectionBToA
}

func (d Direction) String() string {
	switch d {
	case DirectionAToB:
		return "a_to_b"
	case DirectionBToA:
		return "b_to_a"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}
