package jobs

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MessageFormatter renders notification text in a fixed locale and currency.
type MessageFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewMessageFormatter parses a BCP 47 locale and an ISO 4217 currency code.
func NewMessageFormatter(locale, currencyCode string) (*MessageFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("jobs: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("jobs: parse currency %q: %w", currencyCode, err)
	}
	return &MessageFormatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// BookingStatus renders the notification for one transition.
func (f *MessageFormatter) BookingStatus(p BookingStatusPayload) string {
	amount := currency.Symbol(f.unit.Amount(p.TotalAmount))
	return f.printer.Sprintf("Booking %s for client %d moved from %s to %s (total %v) by user %s",
		p.BookingID, p.ClientID, p.From, p.To, amount, actorLabel(p.ActorID))
}

func actorLabel(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
