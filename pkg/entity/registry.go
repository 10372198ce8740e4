package entity

// Registry holds the independent extractor strategies. Rules run
// unconditionally and independently; adding a new slot type is a new
// Extractor, not a change to existing rules.
type Registry struct {
	extractors []Extractor
}

// NewRegistry returns a registry with the full production rule set.
func NewRegistry() *Registry {
	return &Registry{extractors: []Extractor{
		NewDateExtractor(),
		FlightNumberExtractor{},
		BookingRefExtractor{},
		DestinationExtractor{},
		PassengerCountExtractor{},
		NewCabinClassExtractor(),
		NewDirectionExtractor(),
		NewSeatPreferenceExtractor(),
		TaxIDExtractor{},
		PhoneExtractor{},
	}}
}

// Register appends a custom extractor, mainly for tests.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// ExtractAll applies every rule to the text. It never panics on
// malformed input; a rule that finds nothing simply contributes no key.
func (r *Registry) ExtractAll(text string) map[Type][]Entity {
	out := make(map[Type][]Entity)
	if text == "" {
		return out
	}
	for _, ex := range r.extractors {
		if found := ex.Extract(text); len(found) > 0 {
			out[ex.Type()] = append(out[ex.Type()], found...)
		}
	}
	return out
}

// Flatten reduces the multi-valued extraction map to the flat
// slot-value record the dialogue layer merges. The first date becomes
// DATE and a second distinct date becomes RETURN_DATE; every other
// type keeps its first match.
func Flatten(extracted map[Type][]Entity) map[Slot]string {
	flat := make(map[Slot]string)
	for typ, entities := range extracted {
		if len(entities) == 0 {
			continue
		}
		if typ == TypeDate {
			flat[SlotDate] = entities[0].Normalized
			for _, e := range entities[1:] {
				if e.Normalized != entities[0].Normalized {
					flat[SlotReturnDate] = e.Normalized
					break
				}
			}
			continue
		}
		flat[SlotFor(typ)] = entities[0].Normalized
	}
	return flat
}
