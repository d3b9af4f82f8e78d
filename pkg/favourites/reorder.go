package favourites

// ReorderKind selects how a single entity is repositioned
type ReorderKind int

const (
	ReorderNone ReorderKind = iota
	ReorderIncrease
	ReorderDecrease
	ReorderMoveToStart
	ReorderMoveToEnd
	ReorderMoveToPosition
)

var reorderKindNames = map[ReorderKind]string{
	ReorderNone:           "none",
	ReorderIncrease:       "increase",
	ReorderDecrease:       "decrease",
	ReorderMoveToStart:    "move_to_start",
	ReorderMoveToEnd:      "move_to_end",
	ReorderMoveToPosition: "move_to_position",
}

func (k ReorderKind) String() string {
	if name, ok := reorderKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ReorderCommand describes a repositioning. Position is only read by
// ReorderMoveToPosition
type ReorderCommand struct {
	Kind     ReorderKind
	Position int
}

func NoReorder() ReorderCommand { return ReorderCommand{Kind: ReorderNone} }
func IncreaseReorder() ReorderCommand { return ReorderCommand{Kind: ReorderIncrease} }
func DecreaseReorder() ReorderCommand { return ReorderCommand{Kind: ReorderDecrease} }
func MoveToStartReorder() ReorderCommand { return ReorderCommand{Kind: ReorderMoveToStart} }
func MoveToEndReorder() ReorderCommand { return ReorderCommand{Kind: ReorderMoveToEnd} }

func MoveToPositionReorder(position int) ReorderCommand {
	return ReorderCommand{Kind: ReorderMoveToPosition, Position: position}
}

func (c ReorderCommand) String() string {
	return c.Kind.String()
}

// Apply returns a copy of ids with the element at index repositioned.
// "Increase" moves the element one step towards the end of the list.
// Out of range indexes and positions at the boundaries are no-ops, except
// for MoveToPosition whose target is clamped to the list bounds
func (c ReorderCommand) Apply(ids []int64, index int) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	if index < 0 || index >= len(out) {
		return out
	}

	switch c.Kind {
	case ReorderIncrease:
		if index < len(out)-1 {
			out[index], out[index+1] = out[index+1], out[index]
		}
	case ReorderDecrease:
		if index > 0 {
			out[index], out[index-1] = out[index-1], out[index]
		}
	case ReorderMoveToStart:
		out = moveTo(out, index, 0)
	case ReorderMoveToEnd:
		out = moveTo(out, index, len(out)-1)
	case ReorderMoveToPosition:
		out = moveTo(out, index, clamp(c.Position, 0, len(out)-1))
	}

	return out
}

// moveTo relocates ids[from] to position to, keeping the relative order of the rest
func moveTo(ids []int64, from, to int) []int64 {
	if from == to {
		return ids
	}
	id := ids[from]
	rest := append(ids[:from:from], ids[from+1:]...)
	out := make([]int64, 0, len(ids))
	out = append(out, rest[:to]...)
	out = append(out, id)
	return append(out, rest[to:]...)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
