package units

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Dimension names a physical dimension. Values sharing a dimension are
// converted to its base unit before any comparison; different dimensions are
// never compared.
type Dimension string

const (
	DimNone          Dimension = ""
	DimLength        Dimension = "length"
	DimMass          Dimension = "mass"
	DimTime          Dimension = "time"
	DimTemperature   Dimension = "temperature"
	DimEnergy        Dimension = "energy"
	DimCharge        Dimension = "charge"
	DimVelocity      Dimension = "velocity"
	DimAcceleration  Dimension = "acceleration"
	DimFrequency     Dimension = "frequency"
	DimPower         Dimension = "power"
	DimDensity       Dimension = "density"
	DimPressure      Dimension = "pressure"
	DimMagneticField Dimension = "magnetic_field"
	DimAngle         Dimension = "angle"
	DimDimensionless Dimension = "dimensionless"
)

const opaquePrefix = "unit:"

func opaqueDimension(unit string) Dimension {
	return Dimension(opaquePrefix + unit)
}

// IsOpaque reports whether the dimension comes from an unrecognized unit tag.
func (d Dimension) IsOpaque() bool {
	return strings.HasPrefix(string(d), opaquePrefix)
}

// BaseUnit returns the symbol of the dimension's base unit.
func (d Dimension) BaseUnit() string {
	if d.IsOpaque() {
		return strings.TrimPrefix(string(d), opaquePrefix)
	}
	return baseUnits[d]
}

var baseUnits = map[Dimension]string{
	DimLength:        "m",
	DimMass:          "kg",
	DimTime:          "s",
	DimTemperature:   "K",
	DimEnergy:        "J",
	DimCharge:        "C",
	DimVelocity:      "m/s",
	DimAcceleration:  "m/s2",
	DimFrequency:     "Hz",
	DimPower:         "W",
	DimDensity:       "kg/m3",
	DimPressure:      "Pa",
	DimMagneticField: "T",
	DimAngle:         "rad",
	DimDimensionless: "1",
}

// Conversion maps a unit onto the base unit of its dimension:
// base = value*Factor + Offset.
type Conversion struct {
	Dimension Dimension
	Factor    float64
	Offset    float64
}

// ToBase converts a value expressed in the conversion's unit.
func (c Conversion) ToBase(v float64) float64 {
	return v*c.Factor + c.Offset
}

// FromBase converts a base-unit value back into the conversion's unit.
func (c Conversion) FromBase(v float64) float64 {
	return (v - c.Offset) / c.Factor
}

type unitDef struct {
	names  []string
	dim    Dimension
	factor float64
	offset float64
}

const (
	year       = 365.25 * 86400
	lightYear  = 9.4607304725808e15
	parsec     = 3.0856775814913673e16
	evMass     = 1.78266192e-36
	electronQ  = 1.602176634e-19
	solarMass  = 1.989e30
	earthMass  = 5.972e24
	solarLum   = 3.828e26
	solarRad   = 6.957e8
	earthRad   = 6.371e6
	jupiterMas = 1.898e27
)

var unitDefs = []unitDef{
	// length
	{[]string{"m", "meter", "meters", "metre", "metres"}, DimLength, 1, 0},
	{[]string{"km", "kilometer", "kilometers"}, DimLength, 1e3, 0},
	{[]string{"cm"}, DimLength, 1e-2, 0},
	{[]string{"mm"}, DimLength, 1e-3, 0},
	{[]string{"μm", "um", "micrometer", "micrometers", "micron", "microns"}, DimLength, 1e-6, 0},
	{[]string{"nm", "nanometer", "nanometers"}, DimLength, 1e-9, 0},
	{[]string{"pm"}, DimLength, 1e-12, 0},
	{[]string{"fm"}, DimLength, 1e-15, 0},
	{[]string{"Å", "angstrom", "angstroms"}, DimLength, 1e-10, 0},
	{[]string{"AU", "au"}, DimLength, 1.495978707e11, 0},
	{[]string{"ly", "light year", "light years", "light-year", "light-years"}, DimLength, lightYear, 0},
	{[]string{"kly"}, DimLength, 1e3 * lightYear, 0},
	{[]string{"Mly"}, DimLength, 1e6 * lightYear, 0},
	{[]string{"Gly"}, DimLength, 1e9 * lightYear, 0},
	{[]string{"pc", "parsec", "parsecs"}, DimLength, parsec, 0},
	{[]string{"kpc"}, DimLength, 1e3 * parsec, 0},
	{[]string{"Mpc"}, DimLength, 1e6 * parsec, 0},
	{[]string{"Gpc"}, DimLength, 1e9 * parsec, 0},
	{[]string{"R☉", "R⊙", "R_sun", "solar radius", "solar radii"}, DimLength, solarRad, 0},
	{[]string{"R⊕", "R_earth", "earth radius", "earth radii"}, DimLength, earthRad, 0},

	// mass
	{[]string{"kg", "kilogram", "kilograms"}, DimMass, 1, 0},
	{[]string{"g", "gram", "grams"}, DimMass, 1e-3, 0},
	{[]string{"mg"}, DimMass, 1e-6, 0},
	{[]string{"μg", "ug"}, DimMass, 1e-9, 0},
	{[]string{"t", "tonne", "tonnes"}, DimMass, 1e3, 0},
	{[]string{"u", "Da", "amu"}, DimMass, 1.66053906660e-27, 0},
	{[]string{"M☉", "M⊙", "M_sun", "Msun", "solar mass", "solar masses"}, DimMass, solarMass, 0},
	{[]string{"M⊕", "M_earth", "earth mass", "earth masses"}, DimMass, earthMass, 0},
	{[]string{"M_J", "M_jup", "jupiter mass", "jupiter masses"}, DimMass, jupiterMas, 0},
	{[]string{"eV/c2"}, DimMass, evMass, 0},
	{[]string{"keV/c2"}, DimMass, 1e3 * evMass, 0},
	{[]string{"MeV/c2"}, DimMass, 1e6 * evMass, 0},
	{[]string{"GeV/c2"}, DimMass, 1e9 * evMass, 0},

	// time
	{[]string{"s", "sec", "second", "seconds"}, DimTime, 1, 0},
	{[]string{"ms", "millisecond", "milliseconds"}, DimTime, 1e-3, 0},
	{[]string{"μs", "us", "microsecond", "microseconds"}, DimTime, 1e-6, 0},
	{[]string{"ns", "nanosecond", "nanoseconds"}, DimTime, 1e-9, 0},
	{[]string{"ps"}, DimTime, 1e-12, 0},
	{[]string{"fs"}, DimTime, 1e-15, 0},
	{[]string{"min", "minute", "minutes"}, DimTime, 60, 0},
	{[]string{"h", "hr", "hour", "hours"}, DimTime, 3600, 0},
	{[]string{"d", "day", "days"}, DimTime, 86400, 0},
	{[]string{"yr", "y", "year", "years"}, DimTime, year, 0},
	{[]string{"kyr"}, DimTime, 1e3 * year, 0},
	{[]string{"Myr", "million years"}, DimTime, 1e6 * year, 0},
	{[]string{"Gyr", "billion years"}, DimTime, 1e9 * year, 0},

	// temperature
	{[]string{"K", "kelvin"}, DimTemperature, 1, 0},
	{[]string{"°C", "celsius"}, DimTemperature, 1, 273.15},
	{[]string{"°F", "fahrenheit"}, DimTemperature, 5.0 / 9.0, 273.15 - 32*5.0/9.0},

	// energy
	{[]string{"J", "joule", "joules"}, DimEnergy, 1, 0},
	{[]string{"kJ"}, DimEnergy, 1e3, 0},
	{[]string{"MJ"}, DimEnergy, 1e6, 0},
	{[]string{"eV"}, DimEnergy, electronQ, 0},
	{[]string{"meV"}, DimEnergy, 1e-3 * electronQ, 0},
	{[]string{"keV"}, DimEnergy, 1e3 * electronQ, 0},
	{[]string{"MeV"}, DimEnergy, 1e6 * electronQ, 0},
	{[]string{"GeV"}, DimEnergy, 1e9 * electronQ, 0},
	{[]string{"TeV"}, DimEnergy, 1e12 * electronQ, 0},
	{[]string{"erg"}, DimEnergy, 1e-7, 0},
	{[]string{"cal"}, DimEnergy, 4.184, 0},
	{[]string{"kcal"}, DimEnergy, 4184, 0},

	// charge
	{[]string{"C", "coulomb", "coulombs"}, DimCharge, 1, 0},
	{[]string{"e"}, DimCharge, electronQ, 0},

	// velocity
	{[]string{"m/s"}, DimVelocity, 1, 0},
	{[]string{"km/s"}, DimVelocity, 1e3, 0},
	{[]string{"km/h", "kph"}, DimVelocity, 1e3 / 3600, 0},
	{[]string{"mph"}, DimVelocity, 0.44704, 0},
	{[]string{"c"}, DimVelocity, 299792458, 0},

	// acceleration
	{[]string{"m/s2"}, DimAcceleration, 1, 0},

	// frequency
	{[]string{"Hz", "hertz", "1/s"}, DimFrequency, 1, 0},
	{[]string{"mHz"}, DimFrequency, 1e-3, 0},
	{[]string{"kHz"}, DimFrequency, 1e3, 0},
	{[]string{"MHz"}, DimFrequency, 1e6, 0},
	{[]string{"GHz"}, DimFrequency, 1e9, 0},
	{[]string{"THz"}, DimFrequency, 1e12, 0},
	{[]string{"PHz"}, DimFrequency, 1e15, 0},
	{[]string{"rpm", "bpm"}, DimFrequency, 1.0 / 60, 0},

	// power
	{[]string{"W", "watt", "watts"}, DimPower, 1, 0},
	{[]string{"mW"}, DimPower, 1e-3, 0},
	{[]string{"kW"}, DimPower, 1e3, 0},
	{[]string{"MW"}, DimPower, 1e6, 0},
	{[]string{"GW"}, DimPower, 1e9, 0},
	{[]string{"TW"}, DimPower, 1e12, 0},
	{[]string{"L☉", "L⊙", "L_sun", "solar luminosity", "solar luminosities"}, DimPower, solarLum, 0},
	{[]string{"erg/s"}, DimPower, 1e-7, 0},

	// density
	{[]string{"kg/m3"}, DimDensity, 1, 0},
	{[]string{"g/cm3", "g/cc"}, DimDensity, 1e3, 0},
	{[]string{"g/L", "g/l"}, DimDensity, 1, 0},

	// pressure
	{[]string{"Pa"}, DimPressure, 1, 0},
	{[]string{"kPa"}, DimPressure, 1e3, 0},
	{[]string{"MPa"}, DimPressure, 1e6, 0},
	{[]string{"GPa"}, DimPressure, 1e9, 0},
	{[]string{"bar"}, DimPressure, 1e5, 0},
	{[]string{"mbar"}, DimPressure, 1e2, 0},
	{[]string{"atm"}, DimPressure, 101325, 0},

	// magnetic field
	{[]string{"T", "tesla"}, DimMagneticField, 1, 0},
	{[]string{"mT"}, DimMagneticField, 1e-3, 0},
	{[]string{"μT", "uT"}, DimMagneticField, 1e-6, 0},
	{[]string{"nT"}, DimMagneticField, 1e-9, 0},
	{[]string{"G", "gauss"}, DimMagneticField, 1e-4, 0},

	// angle
	{[]string{"rad", "radian", "radians"}, DimAngle, 1, 0},
	{[]string{"mrad"}, DimAngle, 1e-3, 0},
	{[]string{"°", "deg", "degree", "degrees"}, DimAngle, math.Pi / 180, 0},
	{[]string{"arcmin"}, DimAngle, math.Pi / (180 * 60), 0},
	{[]string{"arcsec"}, DimAngle, math.Pi / (180 * 3600), 0},

	// dimensionless
	{[]string{"%", "percent"}, DimDimensionless, 0.01, 0},
	{[]string{"ppm"}, DimDimensionless, 1e-6, 0},
}

var (
	registry      = map[string]Conversion{}
	wordsRegistry = map[string]Conversion{}
)

func init() {
	for _, def := range unitDefs {
		conv := Conversion{Dimension: def.dim, Factor: def.factor, Offset: def.offset}
		for _, name := range def.names {
			key := CanonicalUnit(name)
			registry[key] = conv
			if len(key) > 3 {
				wordsRegistry[strings.ToLower(key)] = conv
			}
		}
	}
}

// CanonicalUnit normalizes a unit tag: Unicode NFKC (so the micro sign and
// Greek mu agree and superscripts fold to digits), no exponent carets, and no
// spaces around solidi.
func CanonicalUnit(unit string) string {
	u := norm.NFKC.String(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, "^", "")
	u = strings.Join(strings.Fields(u), " ")
	u = strings.ReplaceAll(u, " / ", "/")
	u = strings.ReplaceAll(u, " /", "/")
	u = strings.ReplaceAll(u, "/ ", "/")
	return u
}

// Lookup finds the conversion for a unit tag. Short symbols are matched
// case-sensitively (mK is not MK); spelled-out names also match lowercased.
func Lookup(unit string) (Conversion, bool) {
	key := CanonicalUnit(unit)
	if conv, ok := registry[key]; ok {
		return conv, true
	}
	if len(key) > 3 {
		if conv, ok := wordsRegistry[strings.ToLower(key)]; ok {
			return conv, true
		}
	}
	return Conversion{}, false
}

// Convert expresses a value given in one unit in another unit of the same
// dimension. It refuses cross-dimension and unknown-unit conversions.
func Convert(value float64, from, to string) (float64, bool) {
	src, ok := Lookup(from)
	if !ok {
		return 0, false
	}
	dst, ok := Lookup(to)
	if !ok || dst.Dimension != src.Dimension {
		return 0, false
	}
	return dst.FromBase(src.ToBase(value)), true
}
