// Package association implements the association lifecycle engine: the typed,
// time-bounded links between globally registered resources (drivers, vehicles)
// and tenant accounts, under the system-wide rule that each resource has at
// most one active exclusive (fleet) assignment across all accounts.
package association

// Kind identifies a resource kind. The two kinds share one engine but differ
// in persistence discipline: driver associations keep full history, vehicle
// associations collapse to a single row per (resource, account) pair.
type Kind string

const (
	KindDriver  Kind = "DRIVER"
	KindVehicle Kind = "VEHICLE"
)

// AssignmentType classifies an association. Exactly one value is exclusive:
// a FLEET assignment is capped at one active instance per resource,
// system-wide. All other values are shared and may coexist freely.
type AssignmentType string

const (
	AssignmentFleet      AssignmentType = "FLEET"
	AssignmentAggregated AssignmentType = "AGGREGATED"
	AssignmentThirdParty AssignmentType = "THIRD_PARTY"
	AssignmentOutsourced AssignmentType = "OUTSOURCED"
	AssignmentLeased     AssignmentType = "LEASED"
)

// Exclusive reports whether the assignment type is the exclusive (fleet
// owner) kind.
func (t AssignmentType) Exclusive() bool { return t == AssignmentFleet }

// Valid reports whether the assignment type is a known value.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentFleet, AssignmentAggregated, AssignmentThirdParty,
		AssignmentOutsourced, AssignmentLeased:
		return true
	}
	return false
}
