package testutil

import "testing"

// Given, When and Then name the phases of a multi-step scenario as subtests.
// Each phase runs against state left by the previous one.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("when "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("then "+desc, fn)
}
