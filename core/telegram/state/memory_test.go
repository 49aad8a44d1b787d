package state

import "testing"

type payload struct {
	Plan  string
	Price int
}

func TestMemoryManagerStates(t *testing.T) {
	m := NewMemoryManager[payload]()

	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("fresh user state = %q, want %q", got, StateIdle)
	}
	if m.HasState(1) || m.InProgress(1) {
		t.Fatal("fresh user must not be in progress")
	}

	m.SetState(1, State("awaiting_plan"))
	if got := m.GetState(1); got != State("awaiting_plan") {
		t.Fatalf("state = %q, want awaiting_plan", got)
	}
	if !m.HasState(1) || !m.InProgress(1) {
		t.Fatal("user with a state must be in progress")
	}
	if m.HasState(2) {
		t.Fatal("state must be per user")
	}

	m.ClearState(1)
	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("cleared state = %q, want %q", got, StateIdle)
	}
}

func TestMemoryManagerData(t *testing.T) {
	m := NewMemoryManager[payload]()

	if _, ok := m.Data(1); ok {
		t.Fatal("fresh user must not carry data")
	}

	m.SetData(1, payload{Plan: "monthly", Price: 500})
	data, ok := m.Data(1)
	if !ok {
		t.Fatal("expected data after SetData")
	}
	if data.Plan != "monthly" || data.Price != 500 {
		t.Fatalf("data = %+v", data)
	}

	// ClearState keeps the payload, Clear drops the whole session
	m.SetState(1, State("awaiting_receipt"))
	m.ClearState(1)
	if _, ok := m.Data(1); !ok {
		t.Fatal("ClearState must keep session data")
	}

	m.Clear(1)
	if _, ok := m.Data(1); ok {
		t.Fatal("Clear must drop session data")
	}
	if m.HasState(1) {
		t.Fatal("Clear must drop the state")
	}
}

func TestMemoryManagerSnapshot(t *testing.T) {
	m := NewMemoryManager[payload]()
	m.SetState(7, State("awaiting_plan"))
	m.SetData(7, payload{Plan: "lifetime", Price: 5000})

	sess := m.Get(7)
	if sess.State != State("awaiting_plan") {
		t.Fatalf("snapshot state = %q", sess.State)
	}
	if !sess.HasData || sess.Data.Plan != "lifetime" {
		t.Fatalf("snapshot data = %+v", sess.Data)
	}

	// mutating the snapshot must not touch the manager
	sess.Data.Price = 1
	if data, _ := m.Data(7); data.Price != 5000 {
		t.Fatal("snapshot must be a copy")
	}
}
