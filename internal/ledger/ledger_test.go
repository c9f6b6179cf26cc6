package ledger

import (
	"errors"
	"testing"
	"time"
)

func position(id, symbol string, status Status) Position {
	return Position{
		ID:        id,
		Symbol:    symbol,
		CexSide:   SideShort,
		DexSide:   SideLong,
		Size:      5000,
		EntryTime: time.Now().UTC(),
		Status:    status,
	}
}

func TestInsertRejectsSecondActiveForSymbol(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := l.Insert(position("p2", "BTC", StatusActive))
	if !errors.Is(err, ErrActiveExists) {
		t.Fatalf("expected ErrActiveExists, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 position, got %d", l.Len())
	}
}

func TestInsertAllowsNewActiveAfterClose(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosed); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := l.Insert(position("p2", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert after close failed: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected closed position retained, got %d", l.Len())
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := l.Insert(position("p1", "ETH", StatusActive))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestTransitionIsMonotonic(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for active -> closed, got %v", err)
	}
	if err := l.Transition("p1", StatusClosing); err != nil {
		t.Fatalf("active -> closing failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for closing -> closing, got %v", err)
	}
	if err := l.Transition("p1", StatusClosed); err != nil {
		t.Fatalf("closing -> closed failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for closed -> closing, got %v", err)
	}
}

func TestTransitionUnknownID(t *testing.T) {
	l := New()
	if err := l.Transition("missing", StatusClosing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveIsSubsetOfAll(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := l.Insert(position("p2", "ETH", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := l.Transition("p1", StatusClosed); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	active := l.Active()
	if len(active) != 1 || active[0].ID != "p2" {
		t.Fatalf("expected only p2 active, got %v", active)
	}
	all := l.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(all))
	}
	if all[0].ID != "p1" || all[1].ID != "p2" {
		t.Fatalf("expected insertion order preserved, got %s %s", all[0].ID, all[1].ID)
	}
}

func TestUpdateMark(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := l.UpdateMark("p1", 12.5, 9.25); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	p, ok := l.Get("p1")
	if !ok {
		t.Fatalf("position not found")
	}
	if p.CexFundingCollected != 12.5 || p.NetPnl != 9.25 {
		t.Fatalf("unexpected mark: funding %v pnl %v", p.CexFundingCollected, p.NetPnl)
	}
	if err := l.UpdateMark("missing", 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveBySymbol(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, ok := l.ActiveBySymbol("BTC"); !ok {
		t.Fatalf("expected active position for BTC")
	}
	if _, ok := l.ActiveBySymbol("ETH"); ok {
		t.Fatalf("expected no active position for ETH")
	}
	if err := l.Transition("p1", StatusClosing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if _, ok := l.ActiveBySymbol("BTC"); ok {
		t.Fatalf("closing position should not count as active")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	l := New()
	if err := l.Insert(position("p1", "BTC", StatusActive)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	p, _ := l.Get("p1")
	p.Status = StatusClosed
	fresh, _ := l.Get("p1")
	if fresh.Status != StatusActive {
		t.Fatalf("mutation leaked into ledger")
	}
}
