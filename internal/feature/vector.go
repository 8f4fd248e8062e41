package feature

import "github.com/ayusman/signify/internal/detector"

// Vector is one frame's flattened features, VectorLen values long when
// produced by Assemble. Vectors are not modified after creation.
type Vector []float32

// Assemble flattens g in face, pose, left hand, right hand order, point by
// point, x then y then z.
func Assemble(g Groups) Vector {
	v := make(Vector, 0, VectorLen)
	v = appendPoints(v, g.Face[:])
	v = appendPoints(v, g.Pose[:])
	v = appendPoints(v, g.Left[:])
	v = appendPoints(v, g.Right[:])
	return v
}

func appendPoints(v Vector, points []detector.Point3D) Vector {
	for _, p := range points {
		v = append(v, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return v
}

// NonZero counts entries that are not exactly zero.
func (v Vector) NonZero() int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}
