package entity

// Type identifies what kind of structured value an extractor produced.
type Type string

const (
	TypeDate           Type = "date"
	TypeFlightNumber   Type = "flight_number"
	TypeBookingRef     Type = "booking_ref"
	TypeDestination    Type = "destination"
	TypePassengerCount Type = "passenger_count"
	TypeCabinClass     Type = "cabin_class"
	TypeDirection      Type = "direction"
	TypeSeatPreference Type = "seat_preference"
	TypeTaxID          Type = "tax_id"
	TypePhone          Type = "phone"
)

// Entity is one extraction hit: the raw substring that matched and its
// canonical representation.
type Entity struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Type       Type   `json:"type"`
}

// Slot names the flat keys handlers and dialogue state work with.
// Dates are the only multi-valued extraction; flattening splits them
// into a primary date and an optional return date.
type Slot string

const (
	SlotDate           Slot = "DATE"
	SlotReturnDate     Slot = "RETURN_DATE"
	SlotFlightNumber   Slot = "FLIGHT_NUMBER"
	SlotBookingRef     Slot = "BOOKING_REF"
	SlotDestination    Slot = "DESTINATION"
	SlotPassengerCount Slot = "PASSENGER_COUNT"
	SlotCabinClass     Slot = "CABIN_CLASS"
	SlotDirection      Slot = "DIRECTION"
	SlotSeatPreference Slot = "SEAT_PREFERENCE"
	SlotTaxID          Slot = "TAX_ID"
	SlotPhone          Slot = "PHONE"
	SlotConfirmation   Slot = "CONFIRMATION"
)

// slotForType maps an extraction type to its primary slot name.
var slotForType = map[Type]Slot{
	TypeDate:           SlotDate,
	TypeFlightNumber:   SlotFlightNumber,
	TypeBookingRef:     SlotBookingRef,
	TypeDestination:    SlotDestination,
	TypePassengerCount: SlotPassengerCount,
	TypeCabinClass:     SlotCabinClass,
	TypeDirection:      SlotDirection,
	TypeSeatPreference: SlotSeatPreference,
	TypeTaxID:          SlotTaxID,
	TypePhone:          SlotPhone,
}

// SlotFor returns the flat slot name for an extraction type.
func SlotFor(t Type) Slot {
	return slotForType[t]
}
