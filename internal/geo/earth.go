// Package geo holds the pure geodetic, atmosphere and reference-frame math
// used by the environment model and the safety evaluator.
//
// Local positions are NED (x north, y east, z down) in meters relative to a
// home point. Bodies use a forward-right-down frame. All functions are pure.
package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// EarthRadius is the equatorial radius used for local tangent plane
	// conversions (meters).
	EarthRadius = 6378137.0

	// GeopotentialEarthRadius is the effective radius used by the standard
	// atmosphere's geopotential altitude (meters).
	GeopotentialEarthRadius = 6356766.0

	// StandardGravity at sea level (m/s^2).
	StandardGravity = 9.80665

	// SeaLevelPressure (Pa).
	SeaLevelPressure = 101325.0

	// SeaLevelTemperature (K).
	SeaLevelTemperature = 288.15

	// AirGasConstant is the specific gas constant of dry air (J/(kg*K)).
	AirGasConstant = 287.053
)

// Point is a geodetic position: degrees and meters above mean sea level.
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude" yaml:"altitude"`
}

func (p Point) String() string {
	return fmt.Sprintf("lat=%.7f lon=%.7f alt=%.2f", p.Latitude, p.Longitude, p.Altitude)
}

// HomePoint is the origin of a local NED frame with its trigonometry cached.
type HomePoint struct {
	Point  Point
	latRad float64
	lonRad float64
	sinLat float64
	cosLat float64
}

// NewHomePoint prepares p for use as a local frame origin.
func NewHomePoint(p Point) HomePoint {
	lat := p.Latitude * math.Pi / 180.0
	lon := p.Longitude * math.Pi / 180.0
	return HomePoint{
		Point:  p,
		latRad: lat,
		lonRad: lon,
		sinLat: math.Sin(lat),
		cosLat: math.Cos(lat),
	}
}

// LocalToGeodetic converts a local NED position to a geodetic point using the
// azimuthal equidistant projection around home.
func LocalToGeodetic(v r3.Vec, home HomePoint) Point {
	xRad := v.X / EarthRadius
	yRad := v.Y / EarthRadius
	c := math.Hypot(xRad, yRad)

	latRad, lonRad := home.latRad, home.lonRad
	if c > 1e-15 {
		sinC, cosC := math.Sin(c), math.Cos(c)
		latRad = math.Asin(cosC*home.sinLat + (xRad*sinC*home.cosLat)/c)
		lonRad = home.lonRad + math.Atan2(yRad*sinC, c*home.cosLat*cosC-xRad*home.sinLat*sinC)
	}

	return Point{
		Latitude:  latRad * 180.0 / math.Pi,
		Longitude: lonRad * 180.0 / math.Pi,
		Altitude:  home.Point.Altitude - v.Z,
	}
}

// GeodeticToLocal is the inverse of LocalToGeodetic.
func GeodeticToLocal(p Point, home HomePoint) r3.Vec {
	lat := p.Latitude * math.Pi / 180.0
	lon := p.Longitude * math.Pi / 180.0
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	cosDLon := math.Cos(lon - home.lonRad)

	arg := math.Max(-1, math.Min(1, home.sinLat*sinLat+home.cosLat*cosLat*cosDLon))
	c := math.Acos(arg)
	k := 1.0
	if c > 0 {
		k = c / math.Sin(c)
	}

	return r3.Vec{
		X: k * (home.cosLat*sinLat - home.sinLat*cosLat*cosDLon) * EarthRadius,
		Y: k * cosLat * math.Sin(lon-home.lonRad) * EarthRadius,
		Z: home.Point.Altitude - p.Altitude,
	}
}

// GeopotentialAltitude converts geometric altitude to geopotential altitude,
// both in meters.
func GeopotentialAltitude(altitude float64) float64 {
	return GeopotentialEarthRadius * altitude / (GeopotentialEarthRadius + altitude)
}

// StandardTemperature returns the 1976 standard atmosphere temperature (K) at
// a geopotential altitude in meters. Above 84.85 km the kinetic temperature is
// not meaningful for a thermometer, so the mesopause value is held.
func StandardTemperature(geopotential float64) float64 {
	h := geopotential / 1000.0
	switch {
	case h <= 11: // troposphere
		return SeaLevelTemperature - 6.5*h
	case h <= 20:
		return 216.65
	case h <= 32:
		return 196.65 + h
	case h <= 47:
		return 228.65 + 2.8*(h-32)
	case h <= 51:
		return 270.65
	case h <= 71:
		return 270.65 - 2.8*(h-51)
	case h <= 84.85:
		return 214.65 - 2*(h-71)
	default:
		return 186.95
	}
}

// StandardPressure returns static pressure (Pa) at a geopotential altitude in
// meters given the standard temperature there.
func StandardPressure(geopotential, temperature float64) float64 {
	h := geopotential / 1000.0
	switch {
	case h <= 11:
		return SeaLevelPressure * math.Pow(SeaLevelTemperature/temperature, -5.255877)
	case h <= 20:
		return 22632.06 * math.Exp(-0.1577*(h-11))
	case h <= 32:
		return 5474.889 * math.Pow(216.65/temperature, 34.16319)
	case h <= 47:
		return 868.0187 * math.Pow(228.65/temperature, 12.2011)
	case h <= 51:
		return 110.9063 * math.Exp(-0.1262*(h-47))
	case h <= 71:
		return 66.93887 * math.Pow(270.65/temperature, -12.2011)
	case h <= 84.85:
		return 3.956420 * math.Pow(214.65/temperature, -17.0816)
	default:
		return 0
	}
}

// AirDensity applies the ideal gas law (kg/m^3).
func AirDensity(pressure, temperature float64) float64 {
	return pressure / AirGasConstant / temperature
}

// GravityMagnitude returns gravitational acceleration at an altitude above
// sea level in meters, falling off with the inverse square of distance from
// the Earth's center.
func GravityMagnitude(altitude float64) float64 {
	factor := 1 + altitude/EarthRadius
	return StandardGravity / (factor * factor)
}

// Gravity returns the gravity vector in the local NED frame.
func Gravity(altitude float64) r3.Vec {
	return r3.Vec{Z: GravityMagnitude(altitude)}
}
