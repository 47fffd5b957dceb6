package utils

import (
	"strings"
	"time"

	"alert-relay/src/logger"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------
// TradingCalendar wraps one exchange calendar from scmhub/calendar.
// -----------------------------------------------------------------------------

type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar maps a symbol to its exchange calendar via its suffix.
// See scmhub/calendar for supported MICs (ISO 10383).
func GetCalendar(symbol string) *TradingCalendar {
	mic := "xnys" // Default US NYSE
	switch {
	case strings.HasSuffix(symbol, ".L"):
		mic = "xlon"
	case strings.HasSuffix(symbol, ".PA"):
		mic = "xpar"
	case strings.HasSuffix(symbol, ".DE"):
		mic = "xfra"
	case strings.HasSuffix(symbol, ".AS"):
		mic = "xams"
	case strings.HasSuffix(symbol, ".MI"):
		mic = "xmil"
	case strings.HasSuffix(symbol, ".T"):
		mic = "xtks"
	case strings.HasSuffix(symbol, ".HK"):
		mic = "xhkg"
	case strings.HasSuffix(symbol, ".TO"):
		mic = "xtse"
	case strings.HasSuffix(symbol, ".AX"):
		mic = "xasx"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		// Simple fallback: Mon-Fri 09:30-16:00 New York time
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsOpenAt checks whether the market trades at the given instant.
func (tc *TradingCalendar) IsOpenAt(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := t.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------
// MarketClock reports market-open status for the instrument universe.
// -----------------------------------------------------------------------------

type MarketClock struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMarketClock(symbols []string, l *logger.Logger) *MarketClock {
	mc := &MarketClock{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}

	for _, symbol := range symbols {
		if cal := GetCalendar(symbol); cal != nil {
			mc.Calendars[symbol] = cal
		}
	}

	l.Info("MarketClock: mapped %d symbols", len(mc.Calendars))
	return mc
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the market for one symbol is currently trading.
// Unknown symbols report true so alerts are never suppressed by mistake.
func (mc *MarketClock) IsOpen(symbol string) bool {
	cal, ok := mc.Calendars[symbol]
	if !ok {
		return true
	}
	return cal.IsOpenAt(time.Now().UTC())
}

// -----------------------------------------------------------------------------

// OpenMarkets returns the open/closed flag for every tracked symbol.
func (mc *MarketClock) OpenMarkets() map[string]bool {
	now := time.Now().UTC()
	result := make(map[string]bool, len(mc.Calendars))
	for symbol, cal := range mc.Calendars {
		result[symbol] = cal.IsOpenAt(now)
	}
	return result
}
