package favourites

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReorderCommand_Apply(t *testing.T) {
	ids := []int64{10, 20, 30, 40}

	tests := []struct {
		name  string
		cmd   ReorderCommand
		index int
		want  []int64
	}{
		{name: "none", cmd: NoReorder(), index: 1, want: []int64{10, 20, 30, 40}},
		{name: "increase", cmd: IncreaseReorder(), index: 1, want: []int64{10, 30, 20, 40}},
		{name: "increase last", cmd: IncreaseReorder(), index: 3, want: []int64{10, 20, 30, 40}},
		{name: "decrease", cmd: DecreaseReorder(), index: 2, want: []int64{10, 30, 20, 40}},
		{name: "decrease first", cmd: DecreaseReorder(), index: 0, want: []int64{10, 20, 30, 40}},
		{name: "move to start", cmd: MoveToStartReorder(), index: 2, want: []int64{30, 10, 20, 40}},
		{name: "move to start first", cmd: MoveToStartReorder(), index: 0, want: []int64{10, 20, 30, 40}},
		{name: "move to end", cmd: MoveToEndReorder(), index: 1, want: []int64{10, 30, 40, 20}},
		{name: "move to position forward", cmd: MoveToPositionReorder(2), index: 0, want: []int64{20, 30, 10, 40}},
		{name: "move to position backward", cmd: MoveToPositionReorder(1), index: 3, want: []int64{10, 40, 20, 30}},
		{name: "move to position clamped high", cmd: MoveToPositionReorder(10), index: 0, want: []int64{20, 30, 40, 10}},
		{name: "move to position clamped low", cmd: MoveToPositionReorder(-1), index: 3, want: []int64{40, 10, 20, 30}},
		{name: "index out of range", cmd: MoveToStartReorder(), index: 4, want: []int64{10, 20, 30, 40}},
		{name: "negative index", cmd: IncreaseReorder(), index: -1, want: []int64{10, 20, 30, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.Apply(ids, tt.index)
			assert.Equal(t, tt.want, got)
			// the input is never modified
			assert.Equal(t, []int64{10, 20, 30, 40}, ids)
		})
	}
}

func TestReorderCommand_ApplySingleAndEmpty(t *testing.T) {
	assert.Equal(t, []int64{}, MoveToEndReorder().Apply([]int64{}, 0))
	assert.Equal(t, []int64{7}, MoveToPositionReorder(5).Apply([]int64{7}, 0))
	assert.Equal(t, []int64{7}, IncreaseReorder().Apply([]int64{7}, 0))
}

func TestReorderKind_String(t *testing.T) {
	assert.Equal(t, "move_to_start", MoveToStartReorder().String())
	assert.Equal(t, "unknown", ReorderKind(99).String())
}
