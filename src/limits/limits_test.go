package limits

import "testing"

func TestTakeGiveRoundTrip(t *testing.T) {
	var s Sysatomic_t = 2
	if !s.Take() {
		t.Fatal("expected Take to succeed while budget remains")
	}
	if s != 1 {
		t.Fatalf("expected budget decremented to 1, got %d", s)
	}
	s.Give()
	if s != 2 {
		t.Fatalf("expected Give to restore budget to 2, got %d", s)
	}
}

func TestTakenFailsWithoutChangingTheLimit(t *testing.T) {
	var s Sysatomic_t = 1
	if !s.Taken(1) {
		t.Fatal("expected the first unit to be takeable")
	}
	if s.Taken(1) {
		t.Fatal("expected Taken to fail once the budget is exhausted")
	}
	if s != 0 {
		t.Fatalf("expected a failed Taken to leave the limit unchanged at 0, got %d", s)
	}
}

func TestGivenIncreasesByArbitraryAmount(t *testing.T) {
	var s Sysatomic_t = 0
	s.Given(5)
	if s != 5 {
		t.Fatalf("expected Given(5) to set the counter to 5, got %d", s)
	}
}

func TestMkSysLimitReturnsGenerousDefaults(t *testing.T) {
	l := MkSysLimit()
	if l.Sysprocs <= 0 || l.Frames <= 0 {
		t.Fatal("expected positive default process and frame limits")
	}
	if l.Pipes <= 0 || l.Mailboxes <= 0 {
		t.Fatal("expected positive default pipe and mailbox limits")
	}
}
