package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	name string
	log  *[]string
	fail error
}

func (v *fakeValidator) Name() string { return v.name }

func (v *fakeValidator) Validate(m *Memory, segmentIndex int) error {
	*v.log = append(*v.log, v.name)
	return v.fail
}

func TestValidatorRegistry(t *testing.T) {
	t.Run("RunsInRegistrationOrder", func(t *testing.T) {
		var log []string
		reg := &ValidatorRegistry{}
		reg.Register(2, &fakeValidator{name: "output", log: &log})
		reg.Register(3, &fakeValidator{name: "range_check", log: &log})

		require.NoError(t, reg.ValidateAll(NewMemory()))
		require.Equal(t, []string{"output", "range_check"}, log)
	})

	t.Run("FirstFailureAborts", func(t *testing.T) {
		var log []string
		reg := &ValidatorRegistry{}
		reg.Register(2, &fakeValidator{name: "a", log: &log})
		reg.Register(3, &fakeValidator{
			name: "b", log: &log,
			fail: Errorf(ErrUnknown, "segment is malformed"),
		})
		reg.Register(4, &fakeValidator{name: "c", log: &log})

		err := reg.ValidateAll(NewMemory())
		require.Equal(t, ErrBuiltinValidation, CodeOf(err))
		require.Contains(t, err.Error(), "builtin b")
		require.Equal(t, []string{"a", "b"}, log)
	})

	t.Run("EmptyRegistry", func(t *testing.T) {
		reg := &ValidatorRegistry{}
		require.NoError(t, reg.ValidateAll(NewMemory()))
	})
}
