package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/stretchr/testify/require"

	"github.com/oriac/oriac-go/internal/oriac/vm"
)

const fixtureArtifact = `{
	"prime": "0x800000000000011000000000000000000000000000000000000000000000001",
	"data": [
		"0x480680017fff8000",
		"0x2",
		"0x208b7fff7fff7ffe"
	],
	"builtins": ["output"],
	"hints": {
		"0": [
			{"code": "memory[ap] = 2", "accessible_scopes": ["__main__", "__main__.main"]}
		]
	},
	"main_scope": "__main__",
	"identifiers": {
		"__main__.main": {"type": "function", "pc": 0},
		"__main__.SIZE": {"type": "const"}
	},
	"debug_info": {"instruction_locations": {}},
	"reference_manager": {"references": []}
}`

func TestParse(t *testing.T) {
	prog, err := Parse([]byte(fixtureArtifact))
	require.NoError(t, err)

	require.Equal(t, 0, prog.Prime.Cmp(fp.Modulus()))
	require.Equal(t, []string{"output"}, prog.Builtins)
	require.Equal(t, "__main__", prog.MainScope)

	require.Len(t, prog.Data, 3)
	require.Equal(t, uint64(0x480680017fff8000), prog.Data[0].Uint64())
	require.Equal(t, uint64(2), prog.Data[1].Uint64())
	require.Equal(t, uint64(0x208b7fff7fff7ffe), prog.Data[2].Uint64())

	require.Len(t, prog.Hints, 1)
	require.Equal(t, "memory[ap] = 2", prog.Hints[0][0].Code)
	require.Equal(t, []string{"__main__", "__main__.main"}, prog.Hints[0][0].AccessibleScopes)
}

func TestParseErrors(t *testing.T) {
	t.Run("MalformedJSON", func(t *testing.T) {
		_, err := Parse([]byte("{"))
		require.Error(t, err)
	})

	t.Run("MalformedPrime", func(t *testing.T) {
		_, err := Parse([]byte(`{"prime": "not-a-number", "data": []}`))
		require.Error(t, err)
	})

	t.Run("WrongPrime", func(t *testing.T) {
		_, err := Parse([]byte(`{"prime": "0x11", "data": []}`))
		require.Equal(t, vm.ErrPrimeMismatch, vm.CodeOf(err))
	})

	t.Run("MalformedDataWord", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"prime": "0x800000000000011000000000000000000000000000000000000000000000001",
			"data": ["0xzz"]
		}`))
		require.Error(t, err)
	})

	t.Run("MalformedHintOffset", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"prime": "0x800000000000011000000000000000000000000000000000000000000000001",
			"data": [],
			"hints": {"abc": []}
		}`))
		require.Error(t, err)
	})
}

func TestParseDefaultsMainScope(t *testing.T) {
	prog, err := Parse([]byte(`{
		"prime": "0x800000000000011000000000000000000000000000000000000000000000001",
		"data": []
	}`))
	require.NoError(t, err)
	require.Equal(t, "__main__", prog.MainScope)
}

func TestEntryPoint(t *testing.T) {
	prog, err := Parse([]byte(fixtureArtifact))
	require.NoError(t, err)

	t.Run("Resolves", func(t *testing.T) {
		pc, err := prog.EntryPoint("main")
		require.NoError(t, err)
		require.Equal(t, uint64(0), pc)
	})

	t.Run("MissingIdentifier", func(t *testing.T) {
		_, err := prog.EntryPoint("does_not_exist")
		require.Error(t, err)
	})

	t.Run("IdentifierWithoutPc", func(t *testing.T) {
		_, err := prog.EntryPoint("SIZE")
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "program.json")
		require.NoError(t, os.WriteFile(path, []byte(fixtureArtifact), 0o644))

		prog, err := Load(path)
		require.NoError(t, err)
		require.Len(t, prog.Data, 3)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}
