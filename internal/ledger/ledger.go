package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

type Status string

const (
	StatusActive  Status = "active"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

var (
	ErrNotFound          = errors.New("position not found")
	ErrDuplicateID       = errors.New("position id already exists")
	ErrActiveExists      = errors.New("active position exists for symbol")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Position is the authoritative record of one open two-leg trade. Records
// are never deleted; closed positions stay for audit.
type Position struct {
	ID                  string
	Symbol              string
	CexSide             Side
	DexSide             Side
	Size                float64
	EntryTime           time.Time
	EntryPrice          float64
	ExpectedReturn      float64
	Status              Status
	CexFundingCollected float64
	NetPnl              float64
}

// Ledger is the in-memory position store. It is owned by the engine and
// injected through its constructor; nothing else mutates it.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
	order     []string
}

func New() *Ledger {
	return &Ledger{positions: make(map[string]*Position)}
}

// Insert adds a new active position. At most one active position may exist
// per symbol at any time.
func (l *Ledger) Insert(p Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	for _, existing := range l.positions {
		if existing.Symbol == p.Symbol && existing.Status == StatusActive {
			return fmt.Errorf("%w: %s", ErrActiveExists, p.Symbol)
		}
	}
	stored := p
	l.positions[p.ID] = &stored
	l.order = append(l.order, p.ID)
	return nil
}

func (l *Ledger) Get(id string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[id]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

func (l *Ledger) ActiveBySymbol(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.positions {
		if p.Symbol == symbol && p.Status == StatusActive {
			return *p, true
		}
	}
	return Position{}, false
}

// Transition advances a position's status. Transitions are monotonic:
// active -> closing -> closed, nothing else.
func (l *Ledger) Transition(id string, next Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !validTransition(p.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

func validTransition(current, next Status) bool {
	switch current {
	case StatusActive:
		return next == StatusClosing
	case StatusClosing:
		return next == StatusClosed
	default:
		return false
	}
}

// UpdateMark overwrites the mark-to-market fields of a position.
func (l *Ledger) UpdateMark(id string, fundingCollected, netPnl float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.CexFundingCollected = fundingCollected
	p.NetPnl = netPnl
	return nil
}

func (l *Ledger) Active() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.order))
	for _, id := range l.order {
		if p := l.positions[id]; p.Status == StatusActive {
			out = append(out, *p)
		}
	}
	return out
}

func (l *Ledger) All() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.positions[id])
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}
