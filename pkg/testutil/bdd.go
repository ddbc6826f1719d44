package testutil

import "testing"

// Given runs the setup phase of a scenario-style test as a named subtest.
func Given(t *testing.T, desc string, step func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, step)
}

// When runs the action under test as a named subtest.
func When(t *testing.T, desc string, step func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, step)
}

// Then runs the outcome assertions as a named subtest.
func Then(t *testing.T, desc string, step func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, step)
}
