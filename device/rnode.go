package device

// RoutableType tags the router-relevant role of an RNode. This is a
// tagged variant, not a type hierarchy.
type RoutableType int

const (
	TypeWire RoutableType = iota
	TypePinfeedI
	TypePinfeedO
	TypePinbounce
)

// crossRCLKSentinel is the raw-delay sentinel the device's delay model
// uses to flag U-turn / cross-RCLK nodes that must be masked out of
// search.
const crossRCLKSentinel = 10000

// SourceKey identifies the "net" a user of an rnode belongs to, for
// the occupancy/sharing model. It is the net identity,
// not the connection identity, so that sibling sinks of one net's fan-out
// tree count as the same source for sharing purposes.
type SourceKey string

// RNode is the router-owned, mutable view of a Node.
type RNode struct {
	ID   uint64 // monotonically assigned at first creation
	Node *Node
	Type RoutableType

	Delay int16 // from the delay model; set once at creation

	users   map[SourceKey]int // refcounted: occupancy == len(users)
	parents map[*RNode]struct{}

	PresentCost    float64
	HistoricalCost float64

	IsTarget bool

	children       []*RNode
	childrenCached bool

	Prev            *RNode
	Visited         bool
	UpstreamCost    float64
	LowerBoundTotal float64
	HasLowerBound   bool // whether LowerBoundTotal holds a value from the current search

	maskedCrossRCLK bool // derived once from Delay > crossRCLKSentinel
}

func newRNode(id uint64, n *Node, typ RoutableType, delay int16) *RNode {
	return &RNode{
		ID:              id,
		Node:            n,
		Type:            typ,
		Delay:           delay,
		users:           make(map[SourceKey]int),
		parents:         make(map[*RNode]struct{}),
		PresentCost:     1,
		HistoricalCost:  1,
		maskedCrossRCLK: delay > crossRCLKSentinel,
	}
}

// MaskedCrossRCLK reports whether this rnode must be excluded from
// search as a U-turn / cross-RCLK hazard.
func (r *RNode) MaskedCrossRCLK() bool { return r.maskedCrossRCLK }

// Occupancy is the number of distinct sources currently using this rnode.
func (r *RNode) Occupancy() int { return len(r.users) }

// Overuse is max(0, occupancy-capacity) with capacity fixed at 1.
func (r *RNode) Overuse() int {
	if o := r.Occupancy() - 1; o > 0 {
		return o
	}
	return 0
}

// HasUser reports whether src currently claims this rnode.
func (r *RNode) HasUser(src SourceKey) bool {
	_, ok := r.users[src]
	return ok
}

// AddUser records that src now routes through this rnode. Refcounted so
// that multiple sinks of the same net sharing this rnode (fan-out) are
// correctly undone one at a time by RemoveUser.
func (r *RNode) AddUser(src SourceKey) {
	r.users[src]++
}

// RemoveUser undoes one AddUser for src.
func (r *RNode) RemoveUser(src SourceKey) {
	if n, ok := r.users[src]; ok {
		if n <= 1 {
			delete(r.users, src)
		} else {
			r.users[src] = n - 1
		}
	}
}

// Users returns the distinct sources currently using this rnode.
func (r *RNode) Users() []SourceKey {
	out := make([]SourceKey, 0, len(r.users))
	for k := range r.users {
		out = append(out, k)
	}
	return out
}

// AddParent records driver as a driver of this rnode within some net's
// routes; more than one distinct parent means a multi-driver conflict
// that RouteLegalizer must resolve.
func (r *RNode) AddParent(driver *RNode) {
	r.parents[driver] = struct{}{}
}

func (r *RNode) RemoveParent(driver *RNode) {
	delete(r.parents, driver)
}

// ParentCount is the number of distinct drivers currently recorded.
func (r *RNode) ParentCount() int { return len(r.parents) }

// Parents returns the distinct recorded drivers.
func (r *RNode) Parents() []*RNode {
	out := make([]*RNode, 0, len(r.parents))
	for p := range r.parents {
		out = append(out, p)
	}
	return out
}

// ResetSearchState clears the per-connection fields PathSearch mutates.
// HistoricalCost and users/parents persist across connections and
// iterations.
func (r *RNode) ResetSearchState() {
	r.Prev = nil
	r.Visited = false
	r.UpstreamCost = 0
	r.LowerBoundTotal = 0
	r.HasLowerBound = false
}

func (r *RNode) String() string {
	return r.Node.ID.String()
}
