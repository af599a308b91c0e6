package types

import (
	"errors"
	"fmt"
)

// RejectReason says which pairwise rule a block failed.
type RejectReason int

const (
	BadIndex RejectReason = iota + 1
	BadPreviousHash
	BadHash
)

func (r RejectReason) String() string {
	switch r {
	case BadIndex:
		return "bad_index"
	case BadPreviousHash:
		return "bad_previous_hash"
	case BadHash:
		return "bad_hash"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

var (
	// ErrEmptyChain is returned when validating a chain with no blocks.
	ErrEmptyChain = errors.New("empty chain")
	// ErrGenesisMismatch is returned when a chain does not start with the
	// genesis block.
	ErrGenesisMismatch = errors.New("first block is not genesis")
)

// ErrRejectedBlock is returned when a block does not extend its predecessor.
type ErrRejectedBlock struct {
	Reason RejectReason
	Index  int64
	Want   string
	Got    string
}

func (e ErrRejectedBlock) Error() string {
	return fmt.Sprintf("rejected block %d: %s (want %s, got %s)", e.Index, e.Reason, e.Want, e.Got)
}

// ErrInvalidChain is returned when a candidate chain fails validation at
// Height.
type ErrInvalidChain struct {
	Height int
	Err    error
}

func (e ErrInvalidChain) Error() string {
	return fmt.Sprintf("invalid chain at height %d: %v", e.Height, e.Err)
}

func (e ErrInvalidChain) Unwrap() error {
	return e.Err
}

// RejectReasonOf extracts the RejectReason from err, if any.
func RejectReasonOf(err error) (RejectReason, bool) {
	var rerr ErrRejectedBlock
	if errors.As(err, &rerr) {
		return rerr.Reason, true
	}
	return 0, false
}
