package dialogue

import "strings"

// Intent is the closed set of conversation intents the router
// dispatches on. The classifier speaks in wire labels; ParseIntent maps
// anything it does not recognize to IntentUnknown, so an outdated or
// misbehaving oracle can never select a handler that does not exist.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentBooking
	IntentTicketChange
	IntentCancellation
	IntentQuote
	IntentFlightLookup
	IntentBookingStatus
	IntentVisaInquiry
	IntentVisaProgress
	IntentPayment
	IntentReceipt
	IntentPassengerInfo
	IntentBaggage
	IntentSeatPreference
	IntentGreeting
	IntentTransferToHuman
	IntentGeneralFAQ
)

var intentLabels = map[Intent]string{
	IntentUnknown:         "UNKNOWN",
	IntentBooking:         "BOOKING",
	IntentTicketChange:    "TICKET_CHANGE",
	IntentCancellation:    "CANCELLATION",
	IntentQuote:           "QUOTE",
	IntentFlightLookup:    "FLIGHT_LOOKUP",
	IntentBookingStatus:   "BOOKING_STATUS",
	IntentVisaInquiry:     "VISA_INQUIRY",
	IntentVisaProgress:    "VISA_PROGRESS",
	IntentPayment:         "PAYMENT",
	IntentReceipt:         "RECEIPT",
	IntentPassengerInfo:   "PASSENGER_INFO",
	IntentBaggage:         "BAGGAGE",
	IntentSeatPreference:  "SEAT_PREFERENCE",
	IntentGreeting:        "GREETING",
	IntentTransferToHuman: "TRANSFER_TO_HUMAN",
	IntentGeneralFAQ:      "GENERAL_FAQ",
}

var intentByLabel = func() map[string]Intent {
	m := make(map[string]Intent, len(intentLabels))
	for intent, label := range intentLabels {
		m[label] = intent
	}
	return m
}()

func (i Intent) String() string {
	if label, ok := intentLabels[i]; ok {
		return label
	}
	return "UNKNOWN"
}

// ParseIntent maps a classifier label to its Intent. Unrecognized
// labels become IntentUnknown rather than an error so the turn always
// has a handler.
func ParseIntent(label string) Intent {
	if intent, ok := intentByLabel[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return intent
	}
	return IntentUnknown
}
