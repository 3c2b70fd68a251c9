package booking

import "encoding/json"

// Feature is a plan capability flag. The set of flags is admin-configurable
// in storage (an open JSON object on the plan row), but all reads in the
// engine go through named constants.
type Feature string

const (
	FeatureCourtBooking     Feature = "court_booking"
	FeatureOpponentMatching Feature = "opponent_matching"
	FeatureWeekendBooking   Feature = "weekend_booking"
	FeatureTournamentEntry  Feature = "tournament_registration"
	FeatureEquipmentRental  Feature = "equipment_rental"
	FeatureAdvancedStats    Feature = "advanced_statistics"
	FeatureBookingDiscount  Feature = "discount_court_booking"
)

// FeatureSet is a plan's enabled capabilities.
type FeatureSet map[Feature]bool

func (fs FeatureSet) Has(f Feature) bool {
	return fs[f]
}

// ParseFeatureSet decodes the plan row's features JSON. An empty or invalid
// document yields an empty set (no capabilities), never an error surfaced to
// the booking flow.
func ParseFeatureSet(raw string) FeatureSet {
	if raw == "" {
		return FeatureSet{}
	}
	var m map[Feature]bool
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return FeatureSet{}
	}
	return FeatureSet(m)
}

// MarshalFeatureSet encodes a feature set for storage.
func MarshalFeatureSet(fs FeatureSet) string {
	if len(fs) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fs)
	if err != nil {
		return "{}"
	}
	return string(data)
}
