package location

// Building is a physical property.
type Building struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// BuildingPatch is a partial update of a building. Nil fields are unchanged.
type BuildingPatch struct {
	Name        *string
	Address     *string
	Description *string
}

// Apply merges the set fields of p into b.
func (p BuildingPatch) Apply(b *Building) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Address != nil {
		b.Address = *p.Address
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
}

// Floor is a level of a building.
type Floor struct {
	ID          int64 `json:"id"`
	FloorNumber int   `json:"floor_number"`
	BuildingID  int64 `json:"building_id"`
}

// FloorPatch is a partial update of a floor. Nil fields are unchanged.
type FloorPatch struct {
	FloorNumber *int
	BuildingID  *int64
}

// Apply merges the set fields of p into f.
func (p FloorPatch) Apply(f *Floor) {
	if p.FloorNumber != nil {
		f.FloorNumber = *p.FloorNumber
	}
	if p.BuildingID != nil {
		f.BuildingID = *p.BuildingID
	}
}

// Room is an access-controlled space on a floor.
type Room struct {
	ID      int64  `json:"id"`
	FloorID int64  `json:"floor_id"`
	Name    string `json:"name"`
}

// RoomPatch is a partial update of a room. Nil fields are unchanged.
type RoomPatch struct {
	FloorID *int64
	Name    *string
}

// Apply merges the set fields of p into r.
func (p RoomPatch) Apply(r *Room) {
	if p.FloorID != nil {
		r.FloorID = *p.FloorID
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
}

// FloorWithBuilding is a floor together with its parent building.
type FloorWithBuilding struct {
	Floor
	Building Building `json:"building"`
}

// RoomWithFloor is a room together with its parent floor.
type RoomWithFloor struct {
	Room
	Floor Floor `json:"floor"`
}
