package location

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
)

// Validation limits.
const (
	maxNameLength    = 100
	maxAddressLength = 255
	maxDescLength    = 1024
	minFloorNumber   = -20
	maxFloorNumber   = 300
)

// ValidateName checks that a building or room name is present and bounded.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return apperr.Validation(fmt.Sprintf("name exceeds %d characters", maxNameLength))
	}
	return nil
}

// Validate checks a building before it is written.
func (b *Building) Validate() error {
	if err := ValidateName(b.Name); err != nil {
		return err
	}
	if strings.TrimSpace(b.Address) == "" {
		return apperr.Validation("address cannot be empty")
	}
	if len(b.Address) > maxAddressLength {
		return apperr.Validation(fmt.Sprintf("address exceeds %d characters", maxAddressLength))
	}
	if len(b.Description) > maxDescLength {
		return apperr.Validation(fmt.Sprintf("description exceeds %d characters", maxDescLength))
	}
	return nil
}

// Validate checks a floor before it is written.
func (f *Floor) Validate() error {
	if f.FloorNumber < minFloorNumber || f.FloorNumber > maxFloorNumber {
		return apperr.Validation(fmt.Sprintf("floor_number must be between %d and %d", minFloorNumber, maxFloorNumber))
	}
	if f.BuildingID < 1 {
		return apperr.Validation("building_id must be a positive id")
	}
	return nil
}

// Validate checks a room before it is written.
func (r *Room) Validate() error {
	if r.FloorID < 1 {
		return apperr.Validation("floor_id must be a positive id")
	}
	return ValidateName(r.Name)
}
