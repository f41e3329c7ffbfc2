package scheduling

import (
	"github.com/Workiva/go-datastructures/queue"

	"github.com/flowbed/floodcycle/types"
)

// Item wraps types.Item with the Compare method queue.PriorityQueue
// requires, the same pattern app.go uses for its schedules/intervals
// queues: lower Priority pops first.
type Item types.Item

func (i Item) Compare(other queue.Item) int {
	o := other.(Item)
	switch {
	case i.Priority > o.Priority:
		return 1
	case i.Priority < o.Priority:
		return -1
	default:
		return 0
	}
}
