// Package location provides the building hierarchy for Gray Logic Access.
//
// Buildings contain Floors, which contain Rooms. Each level is owned by its
// parent: deleting a building removes its floors, and deleting a floor removes
// its rooms together with the rooms' access rules, access logs and presence.
//
// Uniqueness is enforced by the schema and reported as AlreadyExists errors:
// building name and address, floor number within a building, and room name
// within a floor.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines.
package location
