package cluster

import "math"

// merge records one agglomeration step. a and b are representative point
// indices of the two clusters joined.
type merge struct {
	a, b     int
	distance float64
	size     int
}

// pairwiseDistances returns the dense squared Euclidean distance matrix.
func pairwiseDistances(vectors [][]float64) [][]float64 {
	n := len(vectors)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var d float64
			for k := range vectors[i] {
				var vj float64
				if k < len(vectors[j]) {
					vj = vectors[j][k]
				}
				diff := vectors[i][k] - vj
				d += diff * diff
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// wardLinkage agglomerates n points with Ward's criterion using the
// Lance-Williams recurrence on squared distances. The merged cluster reuses
// the slot of its lower-indexed parent. Merge distances are reported as
// Euclidean, matching scipy. Fewer than two points produce no merges.
func wardLinkage(dist [][]float64, n int) []merge {
	if n < 2 {
		return nil
	}

	d := make([][]float64, n)
	for i := range d {
		d[i] = append([]float64(nil), dist[i]...)
	}
	active := make([]bool, n)
	size := make([]int, n)
	rep := make([]int, n)
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		rep[i] = i
	}

	merges := make([]merge, 0, n-1)
	for step := 0; step < n-1; step++ {
		minDist := math.MaxFloat64
		minI, minJ := -1, -1
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && d[i][j] < minDist {
					minDist = d[i][j]
					minI, minJ = i, j
				}
			}
		}

		ni := float64(size[minI])
		nj := float64(size[minJ])
		for k := 0; k < n; k++ {
			if !active[k] || k == minI || k == minJ {
				continue
			}
			nk := float64(size[k])
			nd := ((nk+ni)*d[minI][k] + (nk+nj)*d[minJ][k] - nk*minDist) / (nk + ni + nj)
			d[minI][k] = nd
			d[k][minI] = nd
		}

		merges = append(merges, merge{
			a:        rep[minI],
			b:        rep[minJ],
			distance: math.Sqrt(math.Max(minDist, 0)),
			size:     size[minI] + size[minJ],
		})
		size[minI] += size[minJ]
		active[minJ] = false
	}
	return merges
}

// cutDendrogram applies every merge at or below threshold and returns a
// sequential label for each of the n points, numbered by first appearance.
func cutDendrogram(merges []merge, n int, threshold float64) []int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	for _, m := range merges {
		if m.distance > threshold {
			continue
		}
		ra, rb := find(parent, m.a), find(parent, m.b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	labels := make([]int, n)
	ids := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(parent, i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}
