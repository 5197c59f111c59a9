package core

import "regexp"

// nameRegex splits a combined Name cell. The species is one uppercase
// letter followed by every lowercase letter after it; the rest is the
// version and may be empty.
var nameRegex = regexp.MustCompile(`^([A-Z][a-z]+)([A-Z0-9]?.*)$`)

// SplitName splits a combined name such as "CharizardMega" into the species
// name and version ("Charizard", "Mega").
//
//	SplitName("Pikachu")               // "Pikachu", ""
//	SplitName("VenusaurMega Venusaur") // "Venusaur", "Mega Venusaur"
//	SplitName("Mr2")                   // "Mr", "2"
func SplitName(combined string) (name, version string, err error) {
	m := nameRegex.FindStringSubmatch(combined)
	if m == nil {
		return "", "", &MalformedNameError{Value: combined}
	}
	return m[1], m[2], nil
}
