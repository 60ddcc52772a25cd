package tasks

import "github.com/elsid/hafen-botserver/internal/vec2"

// AdjacentTilesClusters greedily groups points where a point joins the
// first existing cluster containing an axis-adjacent (Manhattan-1,
// diagonals excluded) point. Grounded on
// original_source/src/bot/clusterization.rs.
func AdjacentTilesClusters(points []vec2.I) [][]vec2.I {
	var clusters [][]vec2.I
	for _, p := range points {
		joined := false
		for i, cluster := range clusters {
			if clusterHasAdjacent(cluster, p) {
				clusters[i] = append(cluster, p)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, []vec2.I{p})
		}
	}
	return clusters
}

func clusterHasAdjacent(cluster []vec2.I, p vec2.I) bool {
	for _, q := range cluster {
		if isAdjacent(p, q) {
			return true
		}
	}
	return false
}

func isAdjacent(a, b vec2.I) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return (dx == 1 && dy == 0) || (dx == 0 && dy == 1)
}

// ClusterMedian returns the cluster point nearest to the centroid of the
// cluster's tile centers.
func ClusterMedian(cluster []vec2.I) vec2.I {
	if len(cluster) == 0 {
		return vec2.I{}
	}
	var sumX, sumY float64
	for _, p := range cluster {
		c := p.Center()
		sumX += c.X
		sumY += c.Y
	}
	centroid := vec2.NewF(sumX/float64(len(cluster)), sumY/float64(len(cluster)))

	best := cluster[0]
	bestDist := best.Center().Distance(centroid)
	for _, p := range cluster[1:] {
		d := p.Center().Distance(centroid)
		if d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}
