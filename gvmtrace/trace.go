// package gvmtrace records snapshots of machine state for visualization.
package gvmtrace

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"gvm.dev/gvm/gvmprog"
)

// Snapshot is the state of every goroutine after one instruction dispatch.
type Snapshot struct {
	Step     uint64         `json:"step" cbor:"1,keyasint"`
	Current  uint32         `json:"current" cbor:"2,keyasint"`
	Contexts []ContextState `json:"contexts" cbor:"3,keyasint"`
}

type ContextState struct {
	ID      uint32       `json:"id" cbor:"1,keyasint"`
	PC      int          `json:"pc" cbor:"2,keyasint"`
	Blocked bool         `json:"blocked,omitempty" cbor:"3,keyasint,omitempty"`
	Current bool         `json:"current,omitempty" cbor:"4,keyasint,omitempty"`
	Loc     *gvmprog.Loc `json:"loc,omitempty" cbor:"5,keyasint,omitempty"`
	Stack   []StackValue `json:"stack" cbor:"6,keyasint"`
	// Scopes is the scope chain, innermost first.
	Scopes []Scope `json:"scopes" cbor:"7,keyasint"`
}

type StackValue struct {
	Value string `json:"value" cbor:"1,keyasint"`
	// Modified is set when the value was not at this position in the previous snapshot.
	Modified bool `json:"modified,omitempty" cbor:"2,keyasint,omitempty"`
}

// Scope is one frame in a scope chain.
// Env is the heap address of the environment, shared scopes have the same Env.
type Scope struct {
	Env  uint32 `json:"env" cbor:"1,keyasint"`
	Site int    `json:"site" cbor:"2,keyasint"`
	Loop bool   `json:"loop,omitempty" cbor:"3,keyasint,omitempty"`
	Vars []Var  `json:"vars" cbor:"4,keyasint"`
}

type Var struct {
	Name  string `json:"name" cbor:"1,keyasint"`
	Value string `json:"value" cbor:"2,keyasint"`
}

// Recorder receives snapshots.
type Recorder interface {
	Record(Snapshot)
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gvmtrace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes a trace as CBOR.
func Marshal(trace []Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(trace)
}

func Unmarshal(data []byte) ([]Snapshot, error) {
	var trace []Snapshot
	if err := cbor.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("gvmtrace: unmarshal: %w", err)
	}
	return trace, nil
}
