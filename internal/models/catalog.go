package models

import "slices"

// Year bounds accepted for a listing.
const (
	MinYear = 1985
	MaxYear = 2026
)

// Makes lists the models sellers may pick per make.
var Makes = map[string][]string{
	"Audi":          {"A3", "A4", "A6", "Q3", "Q5", "Q7"},
	"BMW":           {"1 Series", "3 Series", "5 Series", "X1", "X3", "X5"},
	"Mercedes-Benz": {"A-Class", "C-Class", "E-Class", "S-Class", "GLA", "GLE"},
	"Volkswagen":    {"Golf", "Passat", "Tiguan", "Touareg", "Polo"},
	"Tesla":         {"Model 3", "Model S", "Model X", "Model Y"},
	"Skoda":         {"Octavia", "Superb", "Kodiaq", "Karoq", "Fabia"},
	"Volvo":         {"XC40", "XC60", "XC90", "S60", "S90"},
	"Peugeot":       {"208", "308", "3008", "508"},
	"Hyundai":       {"i20", "i30", "Tucson", "Santa Fe", "Ioniq 5"},
	"Renault":       {"Clio", "Megane", "Captur", "Kadjar"},
	"Opel":          {"Astra", "Corsa", "Insignia", "Mokka"},
	"Seat":          {"Ibiza", "Leon", "Ateca", "Arona"},
}

var (
	Colors        = []string{"Black", "White", "Gray", "Silver", "Blue", "Red", "Green", "Yellow", "Brown", "Orange"}
	Fuels         = []string{"Gasoline", "Diesel", "Hybrid", "Electric", "LPG"}
	Transmissions = []string{"Automatic", "Manual", "Semi-automatic"}
	BodyStyles    = []string{"Sedan", "SUV", "Hatchback", "Coupe", "Convertible", "Wagon", "Pickup", "Van"}
)

// KnownModel reports whether the make and model pair is in the catalogue.
func KnownModel(brand, model string) bool {
	names, ok := Makes[brand]
	return ok && slices.Contains(names, model)
}
