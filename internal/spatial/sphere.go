package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// GlobeRadius is the radius of the rendered globe
const GlobeRadius = 1.0

// LatLonToVector places a lat/lon pair on the surface of a sphere.
// The polar angle is measured from the north pole and the azimuth is the
// longitude offset by 180 degrees, so lon=-180 lies on the -X axis.
func LatLonToVector(lat, lon, radius float64) r3.Vector {
	phi := (s1.Angle(90-lat) * s1.Degree).Radians()
	theta := (s1.Angle(lon+180) * s1.Degree).Radians()

	return r3.Vector{
		X: -radius * math.Sin(phi) * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Sin(theta),
	}
}

// FacingCenter returns the unit direction from p toward the origin.
// The zero vector has no direction and maps to itself.
func FacingCenter(p r3.Vector) r3.Vector {
	if p.Norm() == 0 {
		return r3.Vector{}
	}
	return p.Mul(-1).Normalize()
}

// ValidCoordinates reports whether lat/lon lie within [-90,90] x [-180,180]
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lon).IsValid()
}
