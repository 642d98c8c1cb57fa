package vm

// BuiltinValidator checks the post-run consistency invariant of one builtin
// segment. Concrete builtin arithmetic lives outside the engine; the engine
// only knows how to invoke validators after a successful run.
type BuiltinValidator interface {
	// Name identifies the builtin in error messages
	Name() string
	// Validate inspects the builtin's segment in the final memory
	Validate(m *Memory, segmentIndex int) error
}

type registeredValidator struct {
	segmentIndex int
	validator    BuiltinValidator
}

// ValidatorRegistry holds per-segment builtin validators in registration
// order.
type ValidatorRegistry struct {
	entries []registeredValidator
}

// Register attaches a validator to a segment. Registration order is the
// validation order.
func (r *ValidatorRegistry) Register(segmentIndex int, validator BuiltinValidator) {
	r.entries = append(r.entries, registeredValidator{segmentIndex, validator})
}

// ValidateAll invokes every registered validator once. The first failure
// aborts the overall result.
func (r *ValidatorRegistry) ValidateAll(m *Memory) error {
	for _, entry := range r.entries {
		if err := entry.validator.Validate(m, entry.segmentIndex); err != nil {
			return WrapErrorf(ErrBuiltinValidation, err,
				"builtin %s failed validation of segment %d",
				entry.validator.Name(), entry.segmentIndex)
		}
	}
	return nil
}
