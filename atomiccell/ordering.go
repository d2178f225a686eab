package atomiccell

import "fmt"

// Ordering is the memory ordering requested for an atomic operation.
//
// sync/atomic operations are sequentially consistent, which is at least as
// strong as every ordering here. The ordering is still validated so callers
// keep stating the weakest ordering their protocol needs.
type Ordering uint8

const (
	Relaxed Ordering = iota
	Acquiring
	Releasing
	AcquiringAndReleasing
	SequentiallyConsistent

	numOrderings
)

func (o Ordering) String() string {
	switch o {
	case Relaxed:
		return "relaxed"
	case Acquiring:
		return "acquiring"
	case Releasing:
		return "releasing"
	case AcquiringAndReleasing:
		return "acquiringAndReleasing"
	case SequentiallyConsistent:
		return "sequentiallyConsistent"
	default:
		return fmt.Sprintf("Ordering(%d)", uint8(o))
	}
}

func (o Ordering) validLoad() bool {
	return o == Relaxed || o == Acquiring || o == SequentiallyConsistent
}

func (o Ordering) validStore() bool {
	return o == Relaxed || o == Releasing || o == SequentiallyConsistent
}

func (o Ordering) validUpdate() bool { return o < numOrderings }

func checkLoad(o Ordering) {
	if !o.validLoad() {
		panic(fmt.Sprintf("atomiccell: invalid load ordering: %v", o))
	}
}

func checkStore(o Ordering) {
	if !o.validStore() {
		panic(fmt.Sprintf("atomiccell: invalid store ordering: %v", o))
	}
}

func checkUpdate(o Ordering) {
	if !o.validUpdate() {
		panic(fmt.Sprintf("atomiccell: invalid update ordering: %v", o))
	}
}

// a failure ordering is the ordering of the load a failed compare exchange
// performs, so it must be a load ordering.
func checkFailure(o Ordering) {
	if !o.validLoad() {
		panic(fmt.Sprintf("atomiccell: invalid failure ordering: %v", o))
	}
}
