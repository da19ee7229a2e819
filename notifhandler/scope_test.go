package notifhandler

import "testing"

func TestScopeWeakUpgradesWhileOpen(t *testing.T) {
	var scope Scope
	var calls int
	weak := scope.Weak(func() { calls++ })

	strong, ok := weak()
	if !ok {
		t.Fatal("expected upgrade to succeed before Close")
	}
	strong()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestScopeWeakStopsUpgradingAfterClose(t *testing.T) {
	var scope Scope
	weak := scope.Weak(func() {})
	scope.Close()

	if _, ok := weak(); ok {
		t.Fatal("expected upgrade to fail after Close")
	}
}

func TestScopeClosedDuringInFlightInvocationNoOps(t *testing.T) {
	var scope Scope
	var calls int
	weak := scope.Weak(func() { calls++ })

	strong, ok := weak()
	if !ok {
		t.Fatal("expected upgrade to succeed before Close")
	}
	scope.Close()
	strong()
	if calls != 0 {
		t.Fatalf("calls = %d, want 0: Close before invocation must suppress the call", calls)
	}
}
