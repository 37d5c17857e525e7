package domain

import "time"

type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "AVAILABLE"
	UnitStatusOccupied    UnitStatus = "OCCUPIED"
	UnitStatusMaintenance UnitStatus = "MAINTENANCE"
	UnitStatusOutOfOrder  UnitStatus = "OUT_OF_ORDER"
)

// Unit is a bookable room or cabin. Status is a coarse operational flag;
// the claiming intervals held against the unit are the authoritative
// availability signal.
type Unit struct {
	ID             int64
	Number         string
	UnitType       string
	Capacity       int
	BasePriceCents int64
	Status         UnitStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
