package freezeout

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxDim bounds the cube dimension: (τ, x, y, η).
const maxDim = 4

// kuhn returns the d! simplices of the Kuhn triangulation of the unit
// d-cube. Cube vertex v has coordinate k equal to bit k of v. Every simplex
// walks from vertex 0 to vertex 2^d-1 flipping one axis at a time.
func kuhn(d int) [][]int {
	axes := make([]int, d)
	for i := range axes {
		axes[i] = i
	}
	var out [][]int
	var permute func(k int)
	permute = func(k int) {
		if k == d {
			s := make([]int, d+1)
			for i, ax := range axes {
				s[i+1] = s[i] | 1<<ax
			}
			out = append(out, s)
			return
		}
		for i := k; i < d; i++ {
			axes[k], axes[i] = axes[i], axes[k]
			permute(k + 1)
			axes[k], axes[i] = axes[i], axes[k]
		}
	}
	permute(0)
	return out
}

var simplices = map[int][][]int{3: kuhn(3), 4: kuhn(4)}

// patch is a (d-1)-simplex of the iso-surface inside one cube.
type patch struct {
	keys     [maxDim]int
	normal   [maxDim]float64
	centroid [maxDim]float64
	volume   float64
}

// cube is one elementary cell of the space-time lattice in local offsets.
type cube struct {
	dim    int
	values [1 << maxDim]float64
	pos    [1 << maxDim][maxDim]float64
}

func edgeKey(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a*(1<<maxDim) + b
}

// patches triangulates the surface values == 0 inside the cube. Vertices
// with value >= 0 count as above the threshold.
func (c *cube) patches(out []patch) []patch {
	d := c.dim
	for _, s := range simplices[d] {
		var high, low [maxDim + 1]int
		nh, nl := 0, 0
		for _, v := range s {
			if c.values[v] >= 0 {
				high[nh] = v
				nh++
			} else {
				low[nl] = v
				nl++
			}
		}
		if nh == 0 || nl == 0 {
			continue
		}

		var toLow [maxDim]float64
		for i := 0; i < nl; i++ {
			for k := 0; k < d; k++ {
				toLow[k] += c.pos[low[i]][k] / float64(nl)
			}
		}
		for i := 0; i < nh; i++ {
			for k := 0; k < d; k++ {
				toLow[k] -= c.pos[high[i]][k] / float64(nh)
			}
		}

		// Staircase paths through the nh×nl grid of edge points.
		steps := nh - 1 + nl - 1
		for mask := 0; mask < 1<<steps; mask++ {
			if popcount(mask) != nh-1 {
				continue
			}
			var p patch
			var pts [maxDim][maxDim]float64
			h, l := 0, 0
			for i := 0; i < d; i++ {
				if i > 0 {
					if mask&(1<<(i-1)) != 0 {
						h++
					} else {
						l++
					}
				}
				pts[i] = c.intersect(high[h], low[l])
				p.keys[i] = edgeKey(high[h], low[l])
			}

			p.normal = normal(d, &pts)
			dot := 0.0
			for k := 0; k < d; k++ {
				dot += p.normal[k] * toLow[k]
			}
			if dot < 0 {
				for k := 0; k < d; k++ {
					p.normal[k] = -p.normal[k]
				}
			}
			for i := 0; i < d; i++ {
				for k := 0; k < d; k++ {
					p.centroid[k] += pts[i][k] / float64(d)
				}
			}
			for k := 0; k < d; k++ {
				p.volume += p.normal[k] * p.normal[k]
			}
			p.volume = math.Sqrt(p.volume)
			out = append(out, p)
		}
	}
	return out
}

// intersect returns the linear zero crossing on the edge from a to b.
func (c *cube) intersect(a, b int) [maxDim]float64 {
	fa, fb := c.values[a], c.values[b]
	t := fa / (fa - fb)
	var p [maxDim]float64
	for k := 0; k < c.dim; k++ {
		p[k] = c.pos[a][k] + t*(c.pos[b][k]-c.pos[a][k])
	}
	return p
}

// normal returns the generalized cross product of the edges of a
// (d-1)-simplex, scaled to its (d-1)-volume.
func normal(d int, pts *[maxDim][maxDim]float64) [maxDim]float64 {
	rows := d - 1
	edges := mat.NewDense(rows, d, nil)
	for i := 1; i < d; i++ {
		for k := 0; k < d; k++ {
			edges.Set(i-1, k, pts[i][k]-pts[0][k])
		}
	}

	fact := 1.0
	for i := 2; i <= rows; i++ {
		fact *= float64(i)
	}

	var n [maxDim]float64
	minor := mat.NewDense(rows, rows, nil)
	for mu := 0; mu < d; mu++ {
		for r := 0; r < rows; r++ {
			col := 0
			for k := 0; k < d; k++ {
				if k == mu {
					continue
				}
				minor.Set(r, col, edges.At(r, k))
				col++
			}
		}
		sign := 1.0
		if mu%2 == 1 {
			sign = -1
		}
		n[mu] = sign * mat.Det(minor) / fact
	}
	return n
}

func popcount(x int) int {
	n := 0
	for ; x != 0; x &= x - 1 {
		n++
	}
	return n
}

// components groups patches connected through shared edge points.
func components(ps []patch, d int) [][]int {
	parent := make([]int, 1<<(2*maxDim))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, p := range ps {
		for i := 1; i < d; i++ {
			a, b := find(p.keys[0]), find(p.keys[i])
			if a != b {
				parent[b] = a
			}
		}
	}

	index := make(map[int]int)
	var groups [][]int
	for i, p := range ps {
		root := find(p.keys[0])
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
