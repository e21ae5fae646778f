package engine

// orderSlot is the per-order working record used while resolving a
// Movement phase. Province references are resolved to dense indices once
// up front so the relaxation loop below never does a string lookup.
//
// succeeds is the order's current tentative verdict. The relaxation in
// relax starts every slot at true and recomputes every slot from the other
// slots' current verdicts on each full-board pass, in place of a recursive
// dependency walk. A verdict can change in either direction between
// passes: a support counted as cut by a convoyed attack is no longer cut
// once that attack has failed, and a move blocked by a rival's prevent
// strength goes through once that rival loses its head-to-head.
type orderSlot struct {
	order        Order
	provIdx      int16
	targetIdx    int16
	auxLocIdx    int16
	auxTargetIdx int16
	succeeds     bool
}

// conflictBoard holds the working state for one Movement-phase relaxation:
// the dense slot array plus a province-index -> slot-index lookup so
// strength computations can find "who else has an order here" in O(1).
type conflictBoard struct {
	bySlot  [ProvinceCount]int16 // province index -> slot index, -1 if none
	slots   []orderSlot
	orders  []Order
	gs      *BoardState
	m       *MapData
}

// AdjudicateMovement adjudicates a set of validated orders against the game
// state. Returns the list of resolved orders with outcomes, and the list of
// units dislodged as a result.
func AdjudicateMovement(orders []Order, gs *BoardState, m *MapData) ([]ResolvedOrder, []DislodgedUnit) {
	b := newConflictBoard(orders, gs, m)
	b.relax()
	return b.buildReport()
}

func newConflictBoard(orders []Order, gs *BoardState, m *MapData) *conflictBoard {
	b := &conflictBoard{
		slots:  make([]orderSlot, len(orders)),
		orders: orders,
		gs:     gs,
		m:      m,
	}
	b.indexSlots()
	return b
}

// indexSlots fills bySlot and each slot's province indices from b.orders.
// Reused by MovementAdjudicator.reset so the array backing bySlot need not
// be reallocated between calls.
func (b *conflictBoard) indexSlots() {
	for i := range b.bySlot {
		b.bySlot[i] = -1
	}
	for i, o := range b.orders {
		s := orderSlot{
			order:        o,
			provIdx:      b.idx(o.Location),
			targetIdx:    -1,
			auxLocIdx:    -1,
			auxTargetIdx: -1,
		}
		if o.Target != "" {
			s.targetIdx = b.idx(o.Target)
		}
		if o.AuxLoc != "" {
			s.auxLocIdx = b.idx(o.AuxLoc)
		}
		if o.AuxTarget != "" {
			s.auxTargetIdx = b.idx(o.AuxTarget)
		}
		b.slots[i] = s
		if s.provIdx >= 0 {
			b.bySlot[s.provIdx] = int16(i)
		}
	}
}

func (b *conflictBoard) idx(province string) int16 {
	return int16(b.m.ProvinceIndex(province))
}

// slotAt returns the slot whose order's unit sits at provIdx, or nil.
func (b *conflictBoard) slotAt(provIdx int16) *orderSlot {
	if provIdx < 0 {
		return nil
	}
	i := b.bySlot[provIdx]
	if i < 0 {
		return nil
	}
	return &b.slots[i]
}

func (b *conflictBoard) slotAtLoc(loc string) *orderSlot {
	return b.slotAt(b.idx(loc))
}

// relax runs the fixed-point relaxation described by the Movement
// adjudicator design: seed every order as succeeding, then repeatedly sweep
// the whole board recomputing each order's verdict from the others'
// current (possibly still-settling) verdicts, until a full sweep changes
// nothing. The number of sweeps is capped at len(slots)+1; when the cap is
// reached, relax returns with the verdicts of the last sweep.
func (b *conflictBoard) relax() {
	for i := range b.slots {
		b.slots[i].succeeds = true
	}
	limit := len(b.slots) + 1
	for pass := 0; pass < limit; pass++ {
		changed := false
		for i := range b.slots {
			if next := b.verdict(int16(i)); next != b.slots[i].succeeds {
				b.slots[i].succeeds = next
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// verdict computes whether the order at slot index i currently succeeds,
// given the board's present (not necessarily final) verdicts for every
// other order.
func (b *conflictBoard) verdict(i int16) bool {
	s := &b.slots[i]
	switch s.order.Type {
	case OrderHold:
		return true
	case OrderMove:
		return b.moveSucceeds(i)
	case OrderSupport:
		return !b.supportCut(i)
	case OrderConvoy:
		return !b.convoyDisrupted(i)
	default:
		return false
	}
}

// moveSucceeds applies §4.3.3's conflict-resolution rule: a move succeeds
// only if its attack strength strictly beats every rival mover's attack
// strength at the target, the target's defend strength, and (head-to-head)
// the defender's own attack strength back at the mover's origin.
func (b *conflictBoard) moveSucceeds(i int16) bool {
	s := &b.slots[i]

	if b.needsConvoy(s.order) && !b.hasConvoyPath(s.order) {
		return false
	}

	attack := b.attackStrength(s.provIdx)
	if attack <= b.defendStrength(s.targetIdx) {
		return false
	}

	if defender := b.slotAt(s.targetIdx); defender != nil &&
		defender.order.Type == OrderMove && defender.targetIdx == s.provIdx {
		if attack <= b.attackStrength(s.targetIdx) {
			return false
		}
	}

	for j := range b.slots {
		rival := &b.slots[j]
		if rival.provIdx == s.provIdx || rival.order.Type != OrderMove || rival.targetIdx != s.targetIdx {
			continue
		}
		if attack <= b.preventStrength(rival.provIdx) {
			return false
		}
	}

	return true
}

// attackStrength is 1 plus every currently-valid support for this exact
// move, excluding the case where the mover would dislodge a unit of its
// own power (self-dislodgement is never a real threat, so such a move's
// strength is pinned to 0 regardless of support).
func (b *conflictBoard) attackStrength(provIdx int16) int {
	s := b.slotAt(provIdx)
	if s == nil || s.order.Type != OrderMove {
		return 0
	}

	if occupier := b.gs.UnitAt(s.order.Target); occupier != nil && occupier.Power == s.order.Power {
		occupantOrder := b.slotAt(s.targetIdx)
		if occupantOrder == nil || occupantOrder.order.Type != OrderMove || occupantOrder.targetIdx == s.provIdx {
			return 0
		}
	}

	strength := 1
	for j := range b.slots {
		supporter := &b.slots[j]
		if supporter.order.Type == OrderSupport && supporter.auxLocIdx == s.provIdx &&
			supporter.auxTargetIdx == s.targetIdx && supporter.succeeds {
			strength++
		}
	}
	return strength
}

// defendStrength is the effective resistance a would-be occupant of
// provIdx presents: 0 if it is itself successfully moving away, otherwise
// 1 plus its valid support-hold count.
func (b *conflictBoard) defendStrength(provIdx int16) int {
	s := b.slotAt(provIdx)
	if s == nil {
		return 0
	}
	if s.order.Type == OrderMove {
		if s.succeeds {
			return 0
		}
		return 1
	}

	strength := 1
	for j := range b.slots {
		supporter := &b.slots[j]
		if supporter.order.Type == OrderSupport && supporter.auxLocIdx == provIdx &&
			supporter.auxTargetIdx < 0 && supporter.succeeds {
			strength++
		}
	}
	return strength
}

// preventStrength is how hard the mover at provIdx is fighting off third
// parties converging on the same target: 0 if it is itself the losing
// side of a head-to-head with that target's occupant, else 1 plus its
// valid supports.
func (b *conflictBoard) preventStrength(provIdx int16) int {
	s := b.slotAt(provIdx)
	if s.order.Type != OrderMove {
		return 0
	}

	if defender := b.slotAt(s.targetIdx); defender != nil &&
		defender.order.Type == OrderMove && defender.targetIdx == provIdx && !s.succeeds {
		return 0
	}

	strength := 1
	for j := range b.slots {
		supporter := &b.slots[j]
		if supporter.order.Type == OrderSupport && supporter.auxLocIdx == provIdx &&
			supporter.auxTargetIdx == s.targetIdx && supporter.succeeds {
			strength++
		}
	}
	return strength
}

// supportCut implements the support-cut rule of §4.3.1: a support fails if
// any foreign-power move targets the supporter's own province, except a
// move from the very province the support targets (an attack by the unit
// being supported against never cuts the support against it), and except a
// convoyed move whose own outcome has already settled to failure (it never
// arrived to threaten anything).
func (b *conflictBoard) supportCut(i int16) bool {
	s := &b.slots[i]
	for j := range b.slots {
		attacker := &b.slots[j]
		if attacker.order.Type != OrderMove || attacker.targetIdx != s.provIdx {
			continue
		}
		if s.auxTargetIdx >= 0 && attacker.provIdx == s.auxTargetIdx {
			continue
		}
		if attacker.order.Power == s.order.Power {
			continue
		}
		if b.needsConvoy(attacker.order) && !attacker.succeeds {
			continue
		}
		return true
	}
	return false
}

// convoyDisrupted reports whether the fleet at slot i, having issued a
// Convoy order, is blocked from carrying it out because some move
// succeeds in dislodging it this phase.
func (b *conflictBoard) convoyDisrupted(i int16) bool {
	s := &b.slots[i]
	for j := range b.slots {
		attacker := &b.slots[j]
		if attacker.order.Type == OrderMove && attacker.targetIdx == s.provIdx && attacker.succeeds {
			return true
		}
	}
	return false
}

// needsConvoy reports whether a Move requires a convoy chain — an army
// order whose origin and target are not directly land-adjacent.
func (b *conflictBoard) needsConvoy(order Order) bool {
	if order.Type != OrderMove || order.UnitType != Army {
		return false
	}
	return !b.m.Adjacent(order.Location, order.Coast, order.Target, NoCoast, false)
}

// hasConvoyPath walks the sea graph from order's origin to its target
// looking for an unbroken chain of fleets that (a) each issued a matching
// Convoy order for this exact army and destination and (b) currently have
// a settled, non-disrupted verdict. Any single surviving chain suffices.
func (b *conflictBoard) hasConvoyPath(order Order) bool {
	srcIdx := b.idx(order.Location)
	dstIdx := b.idx(order.Target)

	frontier := b.operativeConvoys(srcIdx, dstIdx, nil, func(fleetLoc string) bool {
		return b.m.Adjacent(order.Location, NoCoast, fleetLoc, NoCoast, true)
	})
	visited := make(map[int16]bool, len(frontier))
	queue := make([]int16, 0, len(frontier))
	for _, f := range frontier {
		visited[f] = true
		queue = append(queue, f)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		currentLoc := b.slots[b.bySlot[current]].order.Location

		if b.m.Adjacent(currentLoc, NoCoast, order.Target, NoCoast, true) {
			return true
		}

		for _, f := range b.operativeConvoys(srcIdx, dstIdx, visited, func(fleetLoc string) bool {
			return b.m.Adjacent(currentLoc, NoCoast, fleetLoc, NoCoast, true)
		}) {
			visited[f] = true
			queue = append(queue, f)
		}
	}
	return false
}

// operativeConvoys returns the slot indices of sea-province fleets that
// convoy the exact (srcIdx, dstIdx) army movement, have not already been
// visited, sit adjacent per reachable, and currently have a succeeding
// verdict (i.e. have not been disrupted).
func (b *conflictBoard) operativeConvoys(srcIdx, dstIdx int16, visited map[int16]bool, reachable func(fleetLoc string) bool) []int16 {
	var out []int16
	for i := range b.slots {
		s := &b.slots[i]
		if s.order.Type != OrderConvoy || s.auxLocIdx != srcIdx || s.auxTargetIdx != dstIdx {
			continue
		}
		if visited[s.provIdx] || !s.succeeds {
			continue
		}
		prov := b.m.Provinces[s.order.Location]
		if prov == nil || prov.Type != Sea {
			continue
		}
		if reachable(s.order.Location) {
			out = append(out, s.provIdx)
		}
	}
	return out
}

// buildReport converts the board's converged verdicts into the external
// Result Report, deriving each order's final OrderResult (and, where the
// outcome was contested, the opposing province(s)) from the settled state.
func (b *conflictBoard) buildReport() ([]ResolvedOrder, []DislodgedUnit) {
	arrivals := make(map[string]string, len(b.orders)) // target province -> mover's origin
	for i := range b.slots {
		s := &b.slots[i]
		if s.order.Type == OrderMove && s.succeeds {
			arrivals[s.order.Target] = s.order.Location
		}
	}

	results := make([]ResolvedOrder, 0, len(b.orders))
	var dislodged []DislodgedUnit

	for _, o := range b.orders {
		s := b.slotAtLoc(o.Location)
		if s == nil {
			continue
		}

		result, opposing := b.outcomeOf(s)

		if attacker, ok := arrivals[o.Location]; ok && (o.Type != OrderMove || !s.succeeds) {
			result = ResultDislodged
			opposing = []string{attacker}
			dislodged = append(dislodged, DislodgedUnit{
				Unit:          Unit{Type: o.UnitType, Power: o.Power, Province: o.Location, Coast: o.Coast},
				DislodgedFrom: o.Location,
				AttackerFrom:  attacker,
			})
		}

		results = append(results, ResolvedOrder{Order: o, Result: result, Opposing: opposing})
	}

	return results, dislodged
}

// outcomeOf classifies a settled slot's OrderResult and names the opposing
// province(s), ignoring dislodgement (buildReport/buildResultsInto layer
// that in separately, since it depends on the global arrivals map).
func (b *conflictBoard) outcomeOf(s *orderSlot) (OrderResult, []string) {
	switch s.order.Type {
	case OrderMove:
		if b.needsConvoy(s.order) && !b.hasConvoyPath(s.order) {
			return ResultInvalidConvoy, b.disruptedConvoys(s.order)
		}
		if !s.succeeds {
			return ResultBounced, b.bounceRivals(s)
		}
		return ResultSucceeded, nil
	case OrderSupport:
		if !s.succeeds {
			return ResultCut, b.cutters(s)
		}
		return ResultSucceeded, nil
	case OrderConvoy:
		if !s.succeeds {
			return ResultFailed, nil
		}
		return ResultSucceeded, nil
	default:
		return ResultSucceeded, nil
	}
}

// bounceRivals names the rival movers and/or the holding occupant whose
// strength matched or exceeded a bounced move's attack strength.
func (b *conflictBoard) bounceRivals(s *orderSlot) []string {
	attack := b.attackStrength(s.provIdx)
	var opposing []string
	if b.defendStrength(s.targetIdx) >= attack {
		opposing = append(opposing, b.m.ProvinceName(int(s.targetIdx)))
	}
	for j := range b.slots {
		rival := &b.slots[j]
		if rival.provIdx == s.provIdx || rival.order.Type != OrderMove || rival.targetIdx != s.targetIdx {
			continue
		}
		if b.preventStrength(rival.provIdx) >= attack {
			opposing = append(opposing, rival.order.Location)
		}
	}
	return opposing
}

// cutters names the move(s) that disrupted a cut support.
func (b *conflictBoard) cutters(s *orderSlot) []string {
	var opposing []string
	for j := range b.slots {
		attacker := &b.slots[j]
		if attacker.order.Type != OrderMove || attacker.targetIdx != s.provIdx {
			continue
		}
		if s.auxTargetIdx >= 0 && attacker.provIdx == s.auxTargetIdx {
			continue
		}
		if attacker.order.Power == s.order.Power {
			continue
		}
		if b.needsConvoy(attacker.order) && !attacker.succeeds {
			continue
		}
		opposing = append(opposing, attacker.order.Location)
	}
	return opposing
}

// disruptedConvoys names the convoying fleets that were dislodged and so
// could not carry a move whose path depended on them.
func (b *conflictBoard) disruptedConvoys(order Order) []string {
	srcIdx, dstIdx := b.idx(order.Location), b.idx(order.Target)
	var opposing []string
	for i := range b.slots {
		s := &b.slots[i]
		if s.order.Type == OrderConvoy && s.auxLocIdx == srcIdx && s.auxTargetIdx == dstIdx && !s.succeeds {
			opposing = append(opposing, s.order.Location)
		}
	}
	return opposing
}

// unitKey identifies a unit by power and current province for the Apply
// step below, which must find the right Unit entry in BoardState.Units
// regardless of the dense indices used during adjudication.
type unitKey struct {
	power    Power
	province string
}

// arrivalEntry stores where a unit successfully moved to, for batch
// application against BoardState.Units.
type arrivalEntry struct {
	target      string
	targetCoast Coast
	clearCoast  bool
}

// ApplyMovementDelta updates the game state based on resolved orders.
// Moves successful units, removes dislodged units from the board, and
// records the provinces left vacant by a mutual standoff (spec invariant
// P6) so the following Retreat phase can forbid retreating into them.
func ApplyMovementDelta(gs *BoardState, m *MapData, results []ResolvedOrder, dislodged []DislodgedUnit) {
	dislodgedAt := make(map[unitKey]bool, len(dislodged))
	for _, d := range dislodged {
		dislodgedAt[unitKey{d.Unit.Power, d.DislodgedFrom}] = true
	}

	arrivals := make(map[unitKey]arrivalEntry, len(results))
	entered := make(map[string]bool, len(results))
	for _, ro := range results {
		if ro.Order.Type == OrderMove && ro.Result == ResultSucceeded {
			arrivals[unitKey{ro.Order.Power, ro.Order.Location}] = arrivalEntry{
				target:      ro.Order.Target,
				targetCoast: ro.Order.TargetCoast,
				clearCoast:  ro.Order.TargetCoast == NoCoast && !m.HasCoasts(ro.Order.Target),
			}
			entered[ro.Order.Target] = true
		}
	}
	relocateUnits(gs, arrivals, dislodgedAt, dislodged)
	gs.Standoffs = standoffProvinces(results, entered)
}

// standoffProvinces returns the set of provinces that were the target of
// two or more bounced moves and were not entered by any unit. Such a
// province stays vacant this phase and cannot be retreated into.
func standoffProvinces(results []ResolvedOrder, entered map[string]bool) map[string]bool {
	return standoffProvincesInto(nil, results, entered)
}

// standoffProvincesInto fills dst with the same set standoffProvinces
// would return, reusing dst's allocation when non-nil. Returns nil (not
// dst) when the set is empty so callers can store it directly on
// BoardState.Standoffs with the same nil-means-none convention Clone and
// CloneInto use.
func standoffProvincesInto(dst map[string]bool, results []ResolvedOrder, entered map[string]bool) map[string]bool {
	if dst != nil {
		clear(dst)
	}
	bounces := make(map[string]int)
	for _, ro := range results {
		if ro.Order.Type == OrderMove && ro.Result == ResultBounced {
			bounces[ro.Order.Target]++
		}
	}
	for target, count := range bounces {
		if count < 2 || entered[target] {
			continue
		}
		if dst == nil {
			dst = make(map[string]bool, 4)
		}
		dst[target] = true
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}

// relocateUnits applies arrival updates and removes dislodged units from
// the game state.
func relocateUnits(gs *BoardState, arrivals map[unitKey]arrivalEntry, dislodgedAt map[unitKey]bool, dislodged []DislodgedUnit) {
	for i := range gs.Units {
		key := unitKey{gs.Units[i].Power, gs.Units[i].Province}
		if a, ok := arrivals[key]; ok {
			gs.Units[i].Province = a.target
			if a.targetCoast != NoCoast {
				gs.Units[i].Coast = a.targetCoast
			} else if a.clearCoast {
				gs.Units[i].Coast = NoCoast
			}
		}
	}

	remaining := gs.Units[:0]
	for _, u := range gs.Units {
		if !dislodgedAt[unitKey{u.Power, u.Province}] {
			remaining = append(remaining, u)
		}
	}
	gs.Units = remaining
	gs.Dislodged = dislodged
}

// MovementAdjudicator is a reusable order adjudicator that minimizes
// allocations. Allocate once with NewMovementAdjudicator and call Resolve
// repeatedly in hot loops. The returned slices are owned by the
// MovementAdjudicator and overwritten on the next call.
type MovementAdjudicator struct {
	board conflictBoard

	resBuf   []ResolvedOrder
	disBuf   []DislodgedUnit
	arrivals map[string]string // target province -> mover's origin, for dislodgement lookup

	dislodgedAt  map[unitKey]bool
	moveEntries  map[unitKey]arrivalEntry
	enteredBuf   map[string]bool
	standoffsBuf map[string]bool
}

// NewMovementAdjudicator creates a reusable MovementAdjudicator. capacity
// should be the expected number of orders per resolution (e.g. 34 for a
// full board).
func NewMovementAdjudicator(capacity int) *MovementAdjudicator {
	rv := &MovementAdjudicator{
		board:        conflictBoard{slots: make([]orderSlot, 0, capacity)},
		resBuf:       make([]ResolvedOrder, 0, capacity),
		disBuf:       make([]DislodgedUnit, 0, 4),
		arrivals:     make(map[string]string, capacity),
		dislodgedAt:  make(map[unitKey]bool, 4),
		moveEntries:  make(map[unitKey]arrivalEntry, capacity),
		enteredBuf:   make(map[string]bool, capacity),
		standoffsBuf: make(map[string]bool, 4),
	}
	for i := range rv.board.bySlot {
		rv.board.bySlot[i] = -1
	}
	return rv
}

// Resolve adjudicates orders and returns resolved results plus dislodged
// units. The returned slices are backed by internal buffers; they are
// valid until the next Resolve call.
func (rv *MovementAdjudicator) Resolve(orders []Order, gs *BoardState, m *MapData) ([]ResolvedOrder, []DislodgedUnit) {
	rv.reset(orders, gs, m)
	rv.board.relax()
	return rv.buildResultsInto()
}

func (rv *MovementAdjudicator) reset(orders []Order, gs *BoardState, m *MapData) {
	b := &rv.board
	n := len(orders)
	if cap(b.slots) >= n {
		b.slots = b.slots[:n]
	} else {
		b.slots = make([]orderSlot, n)
	}
	b.orders = orders
	b.gs = gs
	b.m = m
	b.indexSlots()
}

func (rv *MovementAdjudicator) buildResultsInto() ([]ResolvedOrder, []DislodgedUnit) {
	rv.resBuf = rv.resBuf[:0]
	rv.disBuf = rv.disBuf[:0]
	clear(rv.arrivals)

	b := &rv.board
	for i := range b.slots {
		s := &b.slots[i]
		if s.order.Type == OrderMove && s.succeeds {
			rv.arrivals[s.order.Target] = s.order.Location
		}
	}

	for _, o := range b.orders {
		s := b.slotAtLoc(o.Location)
		if s == nil {
			continue
		}

		result, opposing := b.outcomeOf(s)

		if attacker, ok := rv.arrivals[o.Location]; ok && (o.Type != OrderMove || !s.succeeds) {
			result = ResultDislodged
			opposing = []string{attacker}
			rv.disBuf = append(rv.disBuf, DislodgedUnit{
				Unit:          Unit{Type: o.UnitType, Power: o.Power, Province: o.Location, Coast: o.Coast},
				DislodgedFrom: o.Location,
				AttackerFrom:  attacker,
			})
		}

		rv.resBuf = append(rv.resBuf, ResolvedOrder{Order: o, Result: result, Opposing: opposing})
	}

	return rv.resBuf, rv.disBuf
}

// Apply updates the game state using the results from the most recent
// Resolve call. Moves successful units, removes dislodged units, and
// records standoff provinces (see ApplyMovementDelta) for the following
// Retreat phase.
func (rv *MovementAdjudicator) Apply(gs *BoardState, m *MapData) {
	clear(rv.dislodgedAt)
	clear(rv.moveEntries)

	for _, d := range rv.disBuf {
		rv.dislodgedAt[unitKey{d.Unit.Power, d.DislodgedFrom}] = true
	}

	clear(rv.enteredBuf)
	for _, ro := range rv.resBuf {
		if ro.Order.Type == OrderMove && ro.Result == ResultSucceeded {
			rv.moveEntries[unitKey{ro.Order.Power, ro.Order.Location}] = arrivalEntry{
				target:      ro.Order.Target,
				targetCoast: ro.Order.TargetCoast,
				clearCoast:  ro.Order.TargetCoast == NoCoast && !m.HasCoasts(ro.Order.Target),
			}
			rv.enteredBuf[ro.Order.Target] = true
		}
	}
	relocateUnits(gs, rv.moveEntries, rv.dislodgedAt, rv.disBuf)
	gs.Standoffs = standoffProvincesInto(rv.standoffsBuf, rv.resBuf, rv.enteredBuf)
}

// HasDislodged returns true if the last Resolve call produced any
// dislodged units.
func (rv *MovementAdjudicator) HasDislodged() bool {
	return len(rv.disBuf) > 0
}
