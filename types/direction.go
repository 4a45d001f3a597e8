// Package types defines core domain types shared across adbferry components.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// Direction selects which side of the bridge is archived and which side
// unpacks. It is fixed for the lifetime of a transfer attempt.
type Direction string

const (
	// DirectionPull moves the remote staging folder to the host.
	DirectionPull Direction = "pull"
	// DirectionPush moves a host folder to the remote staging directory.
	DirectionPush Direction = "push"
)

// ParseDirection converts a CLI token into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionPull:
		return DirectionPull, nil
	case DirectionPush:
		return DirectionPush, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want %q or %q)", s, DirectionPull, DirectionPush)
	}
}

// Valid reports whether d is one of the defined directions.
func (d Direction) Valid() bool {
	return d == DirectionPull || d == DirectionPush
}

func (d Direction) String() string {
	return string(d)
}
