// Package convert implements the "<number> <unit> to <unit>" special
// forms: physical-unit conversion through a dimensional-analysis
// library, and currency conversion with a live rate lookup backed by a
// static table.
package convert

import (
	"errors"
	"strings"

	units "github.com/bcicen/go-units"
)

// ErrNotApplicable signals that a conversion special form does not
// apply to the input (unknown or incompatible names). It is a
// fallthrough marker for the orchestrator, never surfaced on a line.
var ErrNotApplicable = errors.New("conversion not applicable")

// unitAliases maps shorthand the library does not recognize onto
// canonical unit names before lookup.
var unitAliases = map[string]string{
	// shorthand
	"ft":   "foot",
	"in":   "inch",
	"yd":   "yard",
	"mi":   "mile",
	"km":   "kilometer",
	"m":    "meter",
	"cm":   "centimeter",
	"mm":   "millimeter",
	"kg":   "kilogram",
	"g":    "gram",
	"mg":   "milligram",
	"lb":   "pound",
	"lbs":  "pound",
	"oz":   "ounce",
	"t":    "tonne",
	"l":    "liter",
	"ml":   "milliliter",
	"gal":  "gallon",
	"qt":   "quart",
	"pt":   "pint",
	"c":    "celsius",
	"f":    "fahrenheit",
	"k":    "kelvin",
	"sec":  "second",
	"secs": "second",
	"min":  "minute",
	"mins": "minute",
	"hr":   "hour",
	"hrs":  "hour",

	// plurals the library's own matching does not cover
	"feet":        "foot",
	"inches":      "inch",
	"yards":       "yard",
	"miles":       "mile",
	"kilometers":  "kilometer",
	"meters":      "meter",
	"centimeters": "centimeter",
	"millimeters": "millimeter",
	"kilograms":   "kilogram",
	"grams":       "gram",
	"milligrams":  "milligram",
	"pounds":      "pound",
	"ounces":      "ounce",
	"tonnes":      "tonne",
	"tons":        "tonne",
	"liters":      "liter",
	"litres":      "liter",
	"litre":       "liter",
	"milliliters": "milliliter",
	"gallons":     "gallon",
	"quarts":      "quart",
	"pints":       "pint",
	"seconds":     "second",
	"minutes":     "minute",
	"hours":       "hour",
}

// displayLabels maps canonical unit names back to the short labels the
// worksheet shows. Units without an entry display their library name.
var displayLabels = map[string]string{
	"foot":       "ft",
	"inch":       "in",
	"yard":       "yd",
	"mile":       "mi",
	"kilometer":  "km",
	"meter":      "m",
	"centimeter": "cm",
	"millimeter": "mm",
	"kilogram":   "kg",
	"gram":       "g",
	"milligram":  "mg",
	"pound":      "lb",
	"ounce":      "oz",
	"liter":      "L",
	"milliliter": "mL",
	"gallon":     "gal",
	"celsius":    "°C",
	"fahrenheit": "°F",
	"kelvin":     "K",
}

// UnitResult is a converted magnitude with its display label.
type UnitResult struct {
	Magnitude float64
	Label     string
}

// Units converts a magnitude between two named units. Names are matched
// case-insensitively through the alias table and then the library's own
// name/symbol/plural matching. Unknown or dimensionally incompatible
// units return ErrNotApplicable so the caller can try the next special
// form.
func Units(magnitude float64, from, to string) (UnitResult, error) {
	fromUnit, err := findUnit(from)
	if err != nil {
		return UnitResult{}, ErrNotApplicable
	}
	toUnit, err := findUnit(to)
	if err != nil {
		return UnitResult{}, ErrNotApplicable
	}

	converted, err := units.ConvertFloat(magnitude, fromUnit, toUnit)
	if err != nil {
		return UnitResult{}, ErrNotApplicable
	}
	return UnitResult{Magnitude: converted.Float(), Label: labelFor(toUnit.Name)}, nil
}

func findUnit(name string) (units.Unit, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := unitAliases[normalized]; ok {
		normalized = alias
	}
	return units.Find(normalized)
}

func labelFor(unitName string) string {
	if label, ok := displayLabels[strings.ToLower(unitName)]; ok {
		return label
	}
	return unitName
}
