package freezeout

import "github.com/san-kum/relhydro/internal/hydro"

// Element is one piece of a freeze-out hypersurface. DSigma holds the
// covariant normal dΣ_μ in the same orthonormal frame as U, so that
// dΣ_μ u^μ is a plain sum; it includes the Milne volume factor and points
// towards lower energy density. The fluid fields are interpolated to the
// centroid.
type Element struct {
	Tau, X, Y, Eta float64
	DSigma         [4]float64
	U              [4]float64

	Epsilon       float64
	RhoB          float64
	Pressure      float64
	Temperature   float64
	MuB           float64
	EnthalpyOverT float64

	Wmunu  [10]float64
	PiBulk float64
	Qmu    [4]float64
}

// RecordLen is the number of float64 fields of one on-disk element.
const RecordLen = 33

// record lays out the fields in file order:
//
//	τ x y η | dΣ_τ dΣ_x dΣ_y dΣ_η | u^τ u^x u^y u^η |
//	ε n_B p T μ_B (ε+p)/T | W^{μν} (packed, 10) | Π | q^τ q^x q^y q^η
func (e *Element) record() [RecordLen]float64 {
	var r [RecordLen]float64
	r[0], r[1], r[2], r[3] = e.Tau, e.X, e.Y, e.Eta
	copy(r[4:8], e.DSigma[:])
	copy(r[8:12], e.U[:])
	r[12], r[13], r[14] = e.Epsilon, e.RhoB, e.Pressure
	r[15], r[16], r[17] = e.Temperature, e.MuB, e.EnthalpyOverT
	copy(r[18:28], e.Wmunu[:])
	r[28] = e.PiBulk
	copy(r[29:33], e.Qmu[:])
	return r
}

func fromRecord(r *[RecordLen]float64) Element {
	var e Element
	e.Tau, e.X, e.Y, e.Eta = r[0], r[1], r[2], r[3]
	copy(e.DSigma[:], r[4:8])
	copy(e.U[:], r[8:12])
	e.Epsilon, e.RhoB, e.Pressure = r[12], r[13], r[14]
	e.Temperature, e.MuB, e.EnthalpyOverT = r[15], r[16], r[17]
	copy(e.Wmunu[:], r[18:28])
	e.PiBulk = r[28]
	copy(e.Qmu[:], r[29:33])
	return e
}

// Cell returns the interpolated fluid state of the element.
func (e *Element) Cell() hydro.Cell {
	return hydro.Cell{
		Epsilon: e.Epsilon,
		RhoB:    e.RhoB,
		U:       e.U,
		Wmunu:   e.Wmunu,
		PiBulk:  e.PiBulk,
		Qmu:     e.Qmu,
	}
}
