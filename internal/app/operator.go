package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"funding-arb-bot/internal/alerts"
	"funding-arb-bot/internal/scanner"

	"go.uber.org/zap"
)

const operatorPollTimeout = 30

const helpText = `Commands:
/scan - rank current opportunities
/status - list active positions
/execute <symbol> - open a position for symbol
/close <id> - close a position by id
/pause - suspend the scan loop
/resume - resume the scan loop`

// runOperator long-polls Telegram for operator commands and replies in the
// configured chat. It exits with the context.
func (a *App) runOperator(ctx context.Context) {
	var offset int64
	for ctx.Err() == nil {
		updates, err := a.alerts.GetUpdates(ctx, offset, operatorPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Warn("operator poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.cfg.Telegram.OperatorPollInterval):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
				continue
			}
			if !a.operatorAllowed(update) {
				a.log.Warn("operator command from unauthorized user", zap.String("text", update.Message.Text))
				continue
			}
			reply := a.handleCommand(ctx, update.Message.Text)
			if reply == "" {
				continue
			}
			if err := a.alerts.Send(ctx, reply); err != nil {
				a.log.Warn("operator reply failed", zap.Error(err))
			}
		}
	}
}

func (a *App) operatorAllowed(update alerts.Update) bool {
	allowed := a.cfg.Telegram.OperatorAllowedUserIDs
	if len(allowed) == 0 {
		return true
	}
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	for _, id := range allowed {
		if update.Message.From.ID == id {
			return true
		}
	}
	return false
}

func (a *App) handleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}
	switch cmd {
	case "/scan":
		return formatScan(a.CommandScan(ctx))
	case "/status":
		return formatStatus(a.CommandStatus())
	case "/execute":
		if len(fields) < 2 {
			return "usage: /execute <symbol>"
		}
		return formatResult(a.CommandExecute(ctx, strings.ToUpper(fields[1])))
	case "/close":
		if len(fields) < 2 {
			return "usage: /close <id>"
		}
		return formatResult(a.CommandClose(ctx, fields[1]))
	case "/pause":
		a.paused.Store(true)
		return "scan loop paused"
	case "/resume":
		a.paused.Store(false)
		return "scan loop resumed"
	case "/help", "/start":
		return helpText
	default:
		return ""
	}
}

func formatScan(result Result) string {
	opportunities, _ := result.Data.([]scanner.Opportunity)
	if len(opportunities) == 0 {
		return "no opportunities above threshold"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d opportunities:\n", len(opportunities))
	for _, opp := range opportunities {
		fmt.Fprintf(&b, "%s: %.2f%% annualized, cex %s / dex %s, risk %s, capital $%.0f\n",
			opp.Symbol,
			opp.ExpectedReturn*100,
			opp.CexSide,
			opp.DexSide,
			opp.Risk,
			opp.RequiredCapital,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(result Result) string {
	statuses, _ := result.Data.([]PositionStatus)
	if len(statuses) == 0 {
		return "no active positions"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d active positions:\n", len(statuses))
	for _, status := range statuses {
		fmt.Fprintf(&b, "%s: %s $%.0f, held %s, pnl $%.2f\n",
			status.ID,
			status.Symbol,
			status.Size,
			status.HeldFor.Round(time.Minute),
			status.NetPnl,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatResult(result Result) string {
	if !result.Success {
		return result.Error
	}
	return "ok"
}
