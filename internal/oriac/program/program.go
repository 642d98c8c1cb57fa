// Package program loads compiled-program artifacts into the in-memory form
// consumed by the runner: the field modulus, the flat data words, builtin
// names, hint units keyed by program-counter offset and the entrypoint
// symbols.
package program

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"

	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// Hint is one opaque hint unit as it appears in the artifact
type Hint struct {
	Code             string   `json:"code"`
	AccessibleScopes []string `json:"accessible_scopes,omitempty"`
}

// Identifier is the slice of the artifact's symbol table the runner needs:
// enough to resolve entry and stop program counters.
type Identifier struct {
	Type string  `json:"type"`
	Pc   *uint64 `json:"pc,omitempty"`
}

// Program is a loaded compiled-program artifact
type Program struct {
	Prime       *big.Int
	Data        []fp.Element
	Builtins    []string
	Hints       map[uint64][]Hint
	MainScope   string
	Identifiers map[string]Identifier
}

type compiledArtifact struct {
	Prime            string                  `json:"prime"`
	Data             []string                `json:"data"`
	Builtins         []string                `json:"builtins"`
	Hints            map[string][]Hint       `json:"hints"`
	MainScope        string                  `json:"main_scope"`
	Identifiers      map[string]Identifier   `json:"identifiers"`
	DebugInfo        json.RawMessage         `json:"debug_info"`        // ignored
	ReferenceManager json.RawMessage         `json:"reference_manager"` // ignored
}

// Load reads and parses a compiled-program artifact from disk
func Load(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program artifact: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a compiled-program artifact. The artifact's declared prime
// must match the engine's field modulus.
func Parse(raw []byte) (*Program, error) {
	var artifact compiledArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse program artifact: %w", err)
	}

	prime, ok := new(big.Int).SetString(artifact.Prime, 0)
	if !ok {
		return nil, fmt.Errorf("malformed prime %q in program artifact", artifact.Prime)
	}
	if prime.Cmp(fp.Modulus()) != 0 {
		return nil, vm.Errorf(vm.ErrPrimeMismatch,
			"program declares prime %s, engine field modulus is %s", prime, fp.Modulus())
	}

	data := make([]fp.Element, len(artifact.Data))
	for i, word := range artifact.Data {
		felt, err := vm.FeltFromString(word)
		if err != nil {
			return nil, fmt.Errorf("data word %d: %w", i, err)
		}
		data[i] = felt
	}

	hints := make(map[uint64][]Hint, len(artifact.Hints))
	for key, units := range artifact.Hints {
		offset, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed hint offset %q: %w", key, err)
		}
		hints[offset] = units
	}

	mainScope := artifact.MainScope
	if mainScope == "" {
		mainScope = "__main__"
	}

	return &Program{
		Prime:       prime,
		Data:        data,
		Builtins:    artifact.Builtins,
		Hints:       hints,
		MainScope:   mainScope,
		Identifiers: artifact.Identifiers,
	}, nil
}

// EntryPoint resolves a function label in the main scope to its program
// counter offset.
func (p *Program) EntryPoint(name string) (uint64, error) {
	ident, ok := p.Identifiers[p.MainScope+"."+name]
	if !ok {
		return 0, fmt.Errorf("missing identifier %s.%s", p.MainScope, name)
	}
	if ident.Pc == nil {
		return 0, fmt.Errorf("identifier %s.%s has no pc", p.MainScope, name)
	}
	return *ident.Pc, nil
}
