package app

import (
	"context"
	"fmt"
	"time"

	"funding-arb-bot/internal/ledger"
)

// Result is the uniform envelope every operator command resolves to.
// Failed commands carry a message in Error, never a Go error value.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PositionStatus is a ledger position annotated with how long it has been
// held, for status displays.
type PositionStatus struct {
	ledger.Position
	HeldFor time.Duration `json:"held_for"`
}

func (a *App) CommandScan(ctx context.Context) Result {
	opportunities := a.engine.Scan(ctx)
	return Result{Success: true, Data: opportunities}
}

func (a *App) CommandStatus() Result {
	now := time.Now().UTC()
	active := a.engine.ActivePositions()
	statuses := make([]PositionStatus, 0, len(active))
	for _, position := range active {
		statuses = append(statuses, PositionStatus{
			Position: position,
			HeldFor:  now.Sub(position.EntryTime),
		})
	}
	return Result{Success: true, Data: statuses}
}

func (a *App) CommandExecute(ctx context.Context, symbol string) Result {
	if symbol == "" {
		return Result{Error: "symbol is required"}
	}
	if !a.engine.Open(ctx, symbol) {
		return Result{Error: fmt.Sprintf("open failed for %s", symbol)}
	}
	position, ok := a.engine.ActiveBySymbol(symbol)
	if !ok {
		return Result{Error: fmt.Sprintf("open failed for %s", symbol)}
	}
	return Result{Success: true, Data: position}
}

func (a *App) CommandClose(ctx context.Context, id string) Result {
	if id == "" {
		return Result{Error: "position id is required"}
	}
	if !a.engine.Close(ctx, id) {
		return Result{Error: fmt.Sprintf("close failed for %s", id)}
	}
	return Result{Success: true}
}
