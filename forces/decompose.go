package forces

import "gonum.org/v1/gonum/spatial/r3"

// Parts is a force split along the local slope frame.
type Parts struct {
	Vertical   r3.Vec // along -normal, into the terrain
	Downward   r3.Vec // in the slope plane, along the fall line
	Horizontal r3.Vec // in the slope plane, across the fall line
}

// Sum reassembles the force.
func (p Parts) Sum() r3.Vec {
	return r3.Add(r3.Add(p.Vertical, p.Downward), p.Horizontal)
}

// Neg negates every part.
func (p Parts) Neg() Parts {
	return Parts{
		Vertical:   r3.Scale(-1, p.Vertical),
		Downward:   r3.Scale(-1, p.Downward),
		Horizontal: r3.Scale(-1, p.Horizontal),
	}
}

func (p Parts) add(q Parts) Parts {
	return Parts{
		Vertical:   r3.Add(p.Vertical, q.Vertical),
		Downward:   r3.Add(p.Downward, q.Downward),
		Horizontal: r3.Add(p.Horizontal, q.Horizontal),
	}
}

var (
	down  = r3.Vec{Y: -1}
	axisX = r3.Vec{X: 1}
	axisZ = r3.Vec{Z: 1}
)

const degenerateEps = 1e-12

// Project returns the component of v along onto, zero when onto is ~zero.
func Project(v, onto r3.Vec) r3.Vec {
	d := r3.Norm2(onto)
	if d < degenerateEps {
		return r3.Vec{}
	}
	return r3.Scale(r3.Dot(v, onto)/d, onto)
}

// ProjectOnPlane removes the component of v along the plane normal n.
func ProjectOnPlane(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, Project(v, n))
}

// Basis returns the two in-plane axes of the slope frame for normal n:
// across = down × n and fall = n × across. On level ground down × n
// vanishes and an arbitrary orthogonal pair is used instead.
func Basis(n r3.Vec) (fall, across r3.Vec) {
	across = r3.Cross(down, n)
	if r3.Norm2(across) < degenerateEps*r3.Norm2(n) {
		ref := axisX
		if r3.Norm2(r3.Cross(n, axisX)) < degenerateEps*r3.Norm2(n) {
			ref = axisZ
		}
		across = r3.Cross(n, ref)
	}
	fall = r3.Cross(n, across)
	return fall, across
}

// Decompose splits f along -n and the slope plane of n.
func Decompose(f, n r3.Vec) Parts {
	fall, across := Basis(n)
	return Parts{
		Vertical:   Project(f, r3.Scale(-1, n)),
		Downward:   Project(f, fall),
		Horizontal: Project(f, across),
	}
}
