package gossip

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tendermint/naivechain/types"
)

// Kind is the wire tag of a Message.
type Kind int

const (
	KindQueryLatest Kind = iota
	KindQueryAll
	KindChainResponse
)

func (k Kind) String() string {
	switch k {
	case KindQueryLatest:
		return "query_latest"
	case KindQueryAll:
		return "query_all"
	case KindChainResponse:
		return "chain_response"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Message is one of *QueryLatest, *QueryAll or *ChainResponse.
type Message interface {
	Kind() Kind
}

// QueryLatest asks a peer for its latest block.
type QueryLatest struct{}

// QueryAll asks a peer for its full chain.
type QueryAll struct{}

// ChainResponse carries a non-empty run of blocks: the sender's latest
// block, or its whole chain.
type ChainResponse struct {
	Blocks []types.Block
}

func (*QueryLatest) Kind() Kind   { return KindQueryLatest }
func (*QueryAll) Kind() Kind      { return KindQueryAll }
func (*ChainResponse) Kind() Kind { return KindChainResponse }

// Last returns the block with the highest index. Blocks must be sorted.
func (m *ChainResponse) Last() types.Block {
	return m.Blocks[len(m.Blocks)-1]
}

// Sort orders the blocks ascending by index, keeping the relative order of
// equal indexes.
func (m *ChainResponse) Sort() {
	sort.SliceStable(m.Blocks, func(i, j int) bool {
		return m.Blocks[i].Index < m.Blocks[j].Index
	})
}

// DecodeError is returned for any inbound payload that is not a well formed
// message.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed message: %s: %v", e.Reason, e.Err)
	}
	return "malformed message: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelope is the wire form. Data holds the block list JSON-encoded a
// second time, as a string.
type envelope struct {
	Type Kind    `json:"type"`
	Data *string `json:"data,omitempty"`
}

// Encode serializes msg to its wire form.
func Encode(msg Message) ([]byte, error) {
	env := envelope{Type: msg.Kind()}

	switch msg := msg.(type) {
	case *QueryLatest, *QueryAll:
	case *ChainResponse:
		if len(msg.Blocks) == 0 {
			return nil, fmt.Errorf("cannot encode empty chain response")
		}
		bz, err := json.Marshal(msg.Blocks)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal blocks: %w", err)
		}
		data := string(bz)
		env.Data = &data
	default:
		return nil, fmt.Errorf("unknown message type %T", msg)
	}

	return json.Marshal(env)
}

// MustEncode is Encode for messages known to be valid.
func MustEncode(msg Message) []byte {
	bz, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return bz
}

// Decode parses a wire message. Every failure is a *DecodeError.
func Decode(bz []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(bz, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid json", Err: err}
	}

	switch env.Type {
	case KindQueryLatest, KindQueryAll:
		if env.Data != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("%s carries data", env.Type)}
		}
		if env.Type == KindQueryLatest {
			return &QueryLatest{}, nil
		}
		return &QueryAll{}, nil

	case KindChainResponse:
		if env.Data == nil {
			return nil, &DecodeError{Reason: "chain response without data"}
		}
		var blocks []types.Block
		if err := json.Unmarshal([]byte(*env.Data), &blocks); err != nil {
			return nil, &DecodeError{Reason: "invalid block list", Err: err}
		}
		if len(blocks) == 0 {
			return nil, &DecodeError{Reason: "empty block list"}
		}
		return &ChainResponse{Blocks: blocks}, nil

	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown message type %d", int(env.Type))}
	}
}
