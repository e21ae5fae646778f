package engine

import "fmt"

// ValidationError describes why an order is invalid.
type ValidationError struct {
	Order   Order
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order %s: %s", e.Order.Describe(), e.Message)
}

// ValidateOrder checks whether an order is legal given the current game state and map.
// Returns nil if valid, or a ValidationError describing the problem.
func ValidateOrder(order Order, gs *BoardState, m *MapData) error {
	unit := gs.UnitAt(order.Location)
	if unit == nil {
		return &ValidationError{order, "no unit at " + order.Location}
	}
	if unit.Power != order.Power {
		return &ValidationError{order, fmt.Sprintf("unit belongs to %s, not %s", unit.Power, order.Power)}
	}
	if unit.Type != order.UnitType {
		return &ValidationError{order, fmt.Sprintf("unit is %s, not %s", unit.Type, order.UnitType)}
	}

	switch order.Type {
	case OrderHold:
		return nil
	case OrderMove:
		return validateMove(order, gs, m)
	case OrderSupport:
		return validateSupport(order, gs, m)
	case OrderConvoy:
		return validateConvoy(order, gs, m)
	default:
		return &ValidationError{order, "unknown order type"}
	}
}

func validateMove(order Order, gs *BoardState, m *MapData) error {
	isFleet := order.UnitType == Fleet
	target := m.Provinces[order.Target]
	if target == nil {
		return &ValidationError{order, "target province does not exist: " + order.Target}
	}
	if isFleet && target.Type == Inland {
		return &ValidationError{order, "fleet cannot move to inland province"}
	}
	if !isFleet && target.Type == Sea {
		return &ValidationError{order, "army cannot move to sea province"}
	}

	if m.Adjacent(order.Location, order.Coast, order.Target, order.TargetCoast, isFleet) {
		if isFleet && m.HasCoasts(order.Target) {
			return validateFleetCoast(order, m)
		}
		return nil
	}

	// Not directly adjacent: an army may still reach it over sea with fleets
	// standing by to convoy it.
	if !isFleet && convoyRouteExists(order.Location, order.Target, gs, m) {
		return nil
	}

	return &ValidationError{order, fmt.Sprintf("cannot move from %s to %s", order.Location, order.Target)}
}

func validateFleetCoast(order Order, m *MapData) error {
	if order.TargetCoast == NoCoast {
		// Check if only one coast is reachable
		coasts := m.FleetCoastsTo(order.Location, order.Coast, order.Target)
		if len(coasts) == 0 {
			return &ValidationError{order, "fleet cannot reach any coast of " + order.Target}
		}
		if len(coasts) > 1 {
			return &ValidationError{order, "must specify coast for " + order.Target}
		}
		return nil
	}
	// Verify the specified coast is reachable
	coasts := m.FleetCoastsTo(order.Location, order.Coast, order.Target)
	for _, c := range coasts {
		if c == order.TargetCoast {
			return nil
		}
	}
	return &ValidationError{order, fmt.Sprintf("fleet cannot reach %s/%s from %s", order.Target, order.TargetCoast, order.Location)}
}

func validateSupport(order Order, gs *BoardState, m *MapData) error {
	// The supported unit must exist at AuxLoc
	supported := gs.UnitAt(order.AuxLoc)
	if supported == nil {
		return &ValidationError{order, "no unit at " + order.AuxLoc + " to support"}
	}

	isFleet := order.UnitType == Fleet

	if order.AuxTarget == "" {
		// Support hold: supporting unit must be adjacent to the province being held
		if !m.Adjacent(order.Location, order.Coast, order.AuxLoc, NoCoast, isFleet) {
			return &ValidationError{order, fmt.Sprintf("cannot support hold at %s from %s", order.AuxLoc, order.Location)}
		}
		return nil
	}

	// Support move: supporting unit must be able to move to the target province
	// (but doesn't need to be adjacent to the supported unit)
	if !m.Adjacent(order.Location, order.Coast, order.AuxTarget, NoCoast, isFleet) {
		return &ValidationError{order, fmt.Sprintf("cannot support move to %s from %s", order.AuxTarget, order.Location)}
	}

	// The supported unit must be able to reach the target
	supportedIsFleet := supported.Type == Fleet
	if !m.Adjacent(order.AuxLoc, supported.Coast, order.AuxTarget, NoCoast, supportedIsFleet) {
		// Check convoy possibility for armies
		if supported.Type == Army && convoyRouteExists(order.AuxLoc, order.AuxTarget, gs, m) {
			return nil
		}
		return &ValidationError{order, fmt.Sprintf("supported unit at %s cannot reach %s", order.AuxLoc, order.AuxTarget)}
	}

	return nil
}

func validateConvoy(order Order, gs *BoardState, m *MapData) error {
	// Only fleets can convoy
	if order.UnitType != Fleet {
		return &ValidationError{order, "only fleets can convoy"}
	}

	// Fleet must be in a sea province
	prov := m.Provinces[order.Location]
	if prov == nil || prov.Type != Sea {
		return &ValidationError{order, "fleet must be in a sea province to convoy"}
	}

	// Convoyed unit must be an army
	convoyed := gs.UnitAt(order.AuxLoc)
	if convoyed == nil {
		return &ValidationError{order, "no unit at " + order.AuxLoc + " to convoy"}
	}
	if convoyed.Type != Army {
		return &ValidationError{order, "only armies can be convoyed"}
	}

	return nil
}

// convoyRouteExists reports whether some chain of fleets currently standing
// in sea provinces could carry an army from src to dst, regardless of what
// orders (if any) those fleets have actually been given — this is a
// pre-order feasibility check, not an adjudication of a submitted Convoy
// order (see hasConvoyPath in resolve.go for that).
func convoyRouteExists(src, dst string, gs *BoardState, m *MapData) bool {
	srcProv, dstProv := m.Provinces[src], m.Provinces[dst]
	if srcProv == nil || dstProv == nil || srcProv.Type == Sea || dstProv.Type == Sea {
		return false
	}

	visited := map[string]bool{}
	queue := seaFleetNeighbors(src, m, gs, visited)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, adj := range m.Adjacencies[current] {
			if adj.To == dst && adj.FleetOK {
				return true
			}
		}
		queue = append(queue, seaFleetNeighbors(current, m, gs, visited)...)
	}
	return false
}

// seaFleetNeighbors returns the not-yet-visited sea provinces adjacent to
// province (by a fleet-capable link) that currently hold a fleet, marking
// each as visited.
func seaFleetNeighbors(province string, m *MapData, gs *BoardState, visited map[string]bool) []string {
	var found []string
	for _, adj := range m.Adjacencies[province] {
		if !adj.FleetOK || visited[adj.To] {
			continue
		}
		seaProv := m.Provinces[adj.To]
		if seaProv == nil || seaProv.Type != Sea {
			continue
		}
		occupant := gs.UnitAt(adj.To)
		if occupant == nil || occupant.Type != Fleet {
			continue
		}
		visited[adj.To] = true
		found = append(found, adj.To)
	}
	return found
}

// ValidateAndDefaultOrders takes submitted orders and returns a complete set of orders
// for all units of all powers. Units without orders get a default Hold.
// Invalid orders are replaced with Hold and reported as void.
func ValidateAndDefaultOrders(orders []Order, gs *BoardState, m *MapData) ([]Order, []ResolvedOrder) {
	ordered := make(map[string]bool) // province -> has order
	var valid []Order
	var voidResults []ResolvedOrder

	for _, o := range orders {
		if err := ValidateOrder(o, gs, m); err != nil {
			// Invalid order -> treat as hold
			hold := Order{
				UnitType: o.UnitType,
				Power:    o.Power,
				Location: o.Location,
				Coast:    o.Coast,
				Type:     OrderHold,
			}
			valid = append(valid, hold)
			voidResults = append(voidResults, ResolvedOrder{Order: o, Result: ResultVoid})
			ordered[o.Location] = true
			continue
		}
		valid = append(valid, o)
		ordered[o.Location] = true
	}

	// Default unordered units to Hold
	for _, unit := range gs.Units {
		if !ordered[unit.Province] {
			valid = append(valid, Order{
				UnitType: unit.Type,
				Power:    unit.Power,
				Location: unit.Province,
				Coast:    unit.Coast,
				Type:     OrderHold,
			})
		}
	}

	return valid, voidResults
}
