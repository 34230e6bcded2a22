package service

import (
	"alpha_bot/internal/models"
	paperService "alpha_bot/internal/modules/paper/service"
	"fmt"
	"sort"
	"strings"
)

func formatRejection(r *models.Rejection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s\n%s", r.Title, r.Message)
	if r.Footer != "" {
		fmt.Fprintf(&b, "\n\n%s", r.Footer)
	}
	return b.String()
}

func tickerName(t models.Ticker) string {
	name := t.ID
	if name == "" {
		name = t.Symbol
	}
	if t.Exchange.Name != "" {
		return fmt.Sprintf("%s (%s)", name, t.Exchange.Name)
	}
	return name
}

func formatAlertsCreated(alerts []models.PriceAlert) string {
	if len(alerts) == 0 {
		return "No alerts created."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Price alert set for %s:\n", tickerName(alerts[0].Ticker))
	for _, a := range alerts {
		arrow := "⬇️"
		if a.Placement == models.PlacementAbove {
			arrow = "⬆️"
		}
		fmt.Fprintf(&b, "%s %s\n", arrow, a.LevelText)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAlertList(alerts []models.PriceAlert) string {
	if len(alerts) == 0 {
		return "📭 You have no price alerts."
	}
	var b strings.Builder
	b.WriteString("🔔 Your price alerts:\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "• %s %s %s\n  id: %s\n", tickerName(a.Ticker), a.Placement, a.LevelText, a.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPreview(o *models.PendingOrder) string {
	execution := "market"
	if o.IsLimit {
		execution = "limit"
	}
	return fmt.Sprintf(
		"📝 Paper %s order (%s)\n\n"+
			"%s %s %s @ %s %s\n"+
			"Total: %s %s\n"+
			"Last price: %s",
		o.OrderType, execution,
		tickerName(o.Ticker), o.AmountText, o.BaseAsset, o.PriceText, o.QuoteAsset,
		paperService.Quantity(o.Cost()), o.QuoteAsset,
		paperService.Quantity(o.LastClose),
	)
}

func formatBalance(l *models.Ledger) string {
	if !l.Active() {
		return "💼 You have not traded yet. Your paper account is opened on the first trade."
	}
	var b strings.Builder
	b.WriteString("💼 Paper balance\n\n")
	fmt.Fprintf(&b, "USD: %s\n", paperService.Quantity(l.Balance.USD))
	for _, venue := range l.Balance.VenueNames() {
		assets := l.Balance.Venues[venue]
		if len(assets) == 0 {
			continue
		}
		names := make([]string, 0, len(assets))
		for a := range assets {
			names = append(names, a)
		}
		sort.Strings(names)

		fmt.Fprintf(&b, "\n%s\n", venue)
		for _, a := range names {
			fmt.Fprintf(&b, "  %s: %s\n", a, paperService.Quantity(assets[a]))
		}
	}
	if l.GlobalResetCount > 0 {
		fmt.Fprintf(&b, "\nResets: %d", l.GlobalResetCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatOrders(orders []models.PaperOrder) string {
	if len(orders) == 0 {
		return "📭 You have no open paper orders."
	}
	var b strings.Builder
	b.WriteString("📋 Open paper orders:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "• %s %s %s %s @ %s %s\n  id: %s\n",
			o.OrderType, tickerName(o.Ticker), o.AmountText, o.BaseAsset, o.PriceText, o.QuoteAsset, o.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFill(o models.PaperOrder) string {
	return fmt.Sprintf("✅ Paper %s order filled: %s %s %s @ %s %s",
		o.OrderType, tickerName(o.Ticker), o.AmountText, o.BaseAsset, o.PriceText, o.QuoteAsset)
}

const helpText = `Commands:
/alert <ticker> [exchange] <level> [level ...]: set price alerts
/alerts: list your alerts
/delalert <id>: delete an alert
/paper <buy|sell|stop-sell> <ticker> [exchange] <amount>[%] [@ <price>[%]]: paper trade
/balance: paper balance
/orders: open paper orders
/cancel <id>: cancel an open paper order
/reset: reset the paper account (once a week)`
