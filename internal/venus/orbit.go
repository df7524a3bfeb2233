package venus

import (
	"math"

	"github.com/soniakeys/meeus/v3/kepler"
	pe "github.com/soniakeys/meeus/v3/planetelements"
	"github.com/soniakeys/unit"
)

// Decimal places asked of the Kepler solver.
const keplerPlaces = 10

// heliocentric returns the ecliptic coordinates in au of planet p (a
// planetelements constant) at the Julian ephemeris day jde, referred to
// the mean equinox of date.
func heliocentric(p int, jde float64) (x, y, z float64, err error) {
	var el pe.Elements
	pe.Mean(p, jde, &el)

	ecc, err := kepler.Kepler2(el.Ecc, el.Lon-el.Peri, keplerPlaces)
	if err != nil {
		return 0, 0, 0, err
	}
	xp := el.Axis * (math.Cos(ecc.Rad()) - el.Ecc)
	yp := el.Axis * math.Sqrt(1-el.Ecc*el.Ecc) * math.Sin(ecc.Rad())

	x, y, z = rotate(xp, yp, el.Peri-el.Node, el.Node, el.Inc)
	return x, y, z, nil
}

// rotate takes orbital-plane coordinates to the ecliptic frame given the
// argument of perihelion, ascending node and inclination.
func rotate(xp, yp float64, argPeri, node, inc unit.Angle) (x, y, z float64) {
	sw, cw := math.Sincos(argPeri.Rad())
	sn, cn := math.Sincos(node.Rad())
	si, ci := math.Sincos(inc.Rad())

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}
