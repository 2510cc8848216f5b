package export

// Segmenter supplies the records of one output segment. The execution context
// only needs the zero-based index of the segment for naming, and releases the
// segmenter through Close when it is replaced or when the run ends.
//
// Close is invoked at most once per attached instance.
type Segmenter interface {
	FileIndex() int
	Close() error
}

type slotState int

const (
	slotEmpty slotState = iota
	slotOwned
	slotReleased
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotOwned:
		return "owned"
	case slotReleased:
		return "released"
	default:
		return "unknown"
	}
}
