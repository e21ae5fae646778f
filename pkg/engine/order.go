package engine

import "fmt"

// OrderType is the tag of the sum type described in the data model: every
// Order is one of these kinds, and only the fields relevant to that kind
// are meaningful.
type OrderType int

const (
	OrderHold    OrderType = iota // unit stays in place
	OrderMove                     // unit moves to an adjacent (or convoyed) province
	OrderSupport                  // unit lends strength to another unit's hold or move
	OrderConvoy                   // fleet carries an army across a sea province
)

func (t OrderType) String() string {
	names := [...]string{"hold", "move", "support", "convoy"}
	if int(t) < 0 || int(t) >= len(names) {
		return "unknown"
	}
	return names[t]
}

// Order is a single unit's instruction for the current Movement phase.
// AuxLoc/AuxTarget/AuxUnitType carry the supported-or-convoyed unit's
// particulars for OrderSupport and OrderConvoy; they are unused otherwise.
type Order struct {
	UnitType UnitType
	Power    Power
	Location string
	Coast    Coast

	Type OrderType

	Target      string
	TargetCoast Coast

	// AuxLoc is the province of the unit being supported or convoyed.
	AuxLoc string
	// AuxTarget is where the supported/convoyed unit is headed, or ""
	// for a support-hold.
	AuxTarget   string
	AuxUnitType UnitType
}

// OrderResult is one outcome of the Result Report: every submitted order
// resolves to exactly one of these after adjudication.
type OrderResult int

const (
	ResultSucceeded      OrderResult = iota // order carried out as given
	ResultFailed                            // support failed to take effect
	ResultDislodged                         // the unit was forced out of its province
	ResultBounced                           // a move was repelled by equal or greater resistance
	ResultCut                               // a support order was disrupted by an attack
	ResultInvalidConvoy                     // a move depending on convoy had no surviving convoy chain
	ResultVoid                              // the order was illegal and was replaced by a hold
)

func (r OrderResult) String() string {
	names := [...]string{"succeeded", "failed", "dislodged", "bounced", "cut", "invalid_convoy", "void"}
	if int(r) < 0 || int(r) >= len(names) {
		return "unknown"
	}
	return names[r]
}

// ResolvedOrder is one entry of the Result Report: an order together with
// its outcome and, where the outcome is contested, the province(s) that
// opposed it — the rival mover for a Bounced move, the attacker for a
// Dislodged or Cut order, or the disrupted fleet for an InvalidConvoy.
type ResolvedOrder struct {
	Order    Order
	Result   OrderResult
	Opposing []string
}

// unitLetter is the DSON-style single-letter tag for a unit kind.
func unitLetter(t UnitType) string {
	if t == Fleet {
		return "F"
	}
	return "A"
}

// locationTag renders a province plus its optional coast as "par" or "stp/nc".
func locationTag(province string, coast Coast) string {
	if coast == NoCoast {
		return province
	}
	return province + "/" + string(coast)
}

// Describe returns a human-readable description of the order, in the same
// terse notation the DSON codec uses for wire orders.
func (o *Order) Describe() string {
	self := unitLetter(o.UnitType) + " " + locationTag(o.Location, o.Coast)

	switch o.Type {
	case OrderHold:
		return self + " Hold"
	case OrderMove:
		return fmt.Sprintf("%s -> %s", self, locationTag(o.Target, o.TargetCoast))
	case OrderSupport:
		aux := unitLetter(o.AuxUnitType) + " " + o.AuxLoc
		if o.AuxTarget == "" {
			return fmt.Sprintf("%s S %s Hold", self, aux)
		}
		return fmt.Sprintf("%s S %s -> %s", self, aux, o.AuxTarget)
	case OrderConvoy:
		return fmt.Sprintf("%s C A %s -> %s", self, o.AuxLoc, o.AuxTarget)
	default:
		return self + " ???"
	}
}
