package accnt

import "testing"

func TestUtaddSystaddAccumulate(t *testing.T) {
	var a Accnt_t
	a.Utadd(100)
	a.Utadd(50)
	a.Systadd(10)
	u, s := a.Snapshot()
	if u != 150 {
		t.Fatalf("expected Userns accumulated to 150, got %d", u)
	}
	if s != 10 {
		t.Fatalf("expected Sysns accumulated to 10, got %d", s)
	}
}

func TestFinishAddsElapsedTimeToSysns(t *testing.T) {
	var a Accnt_t
	start := a.Now()
	a.Finish(start)
	_, s := a.Snapshot()
	if s < 0 {
		t.Fatalf("expected non-negative elapsed system time, got %d", s)
	}
}

func TestAddMergesTwoRecords(t *testing.T) {
	var a, b Accnt_t
	a.Utadd(10)
	a.Systadd(5)
	b.Utadd(20)
	b.Systadd(7)
	a.Add(&b)
	u, s := a.Snapshot()
	if u != 30 || s != 12 {
		t.Fatalf("expected merged (30,12), got (%d,%d)", u, s)
	}
}
