package sim

import (
	"math"
	"math/rand"
)

// Site is the index of a lattice cell, row-major: site = y*width + x.
type Site int

// mooreNeighborhood is the size of a full interior neighbourhood. Resource
// availability divides by it even at the edges, so boundary sites are
// intrinsically poorer.
const mooreNeighborhood = 8

// Lattice owns site occupancy and neighbourhood geometry.
// Edges are hard boundaries; there is no wraparound.
//
// In a well-mixed environment neighbourhoods lose meaning: reproduction and
// contact targets are drawn from the whole lattice and resource availability
// is the population-wide empty fraction.
type Lattice struct {
	width, height int
	mixed         bool
	occupied      []bool
	occupiedCount int
	neighbors     [][]Site // precomputed Moore neighbourhoods
}

// NewLattice creates an empty width x height lattice.
func NewLattice(width, height int, mixed bool) *Lattice {
	l := &Lattice{
		width:     width,
		height:    height,
		mixed:     mixed,
		occupied:  make([]bool, width*height),
		neighbors: make([][]Site, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			site := l.SiteAt(x, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					l.neighbors[site] = append(l.neighbors[site], l.SiteAt(nx, ny))
				}
			}
		}
	}
	return l
}

func (l *Lattice) Width() int  { return l.width }
func (l *Lattice) Height() int { return l.height }
func (l *Lattice) Size() int   { return len(l.occupied) }
func (l *Lattice) Mixed() bool { return l.mixed }

// Center returns the site at (width/2, height/2).
func (l *Lattice) Center() Site { return l.SiteAt(l.width/2, l.height/2) }

// EmptyCount returns the number of vacant sites.
func (l *Lattice) EmptyCount() int {
	return l.Size() - l.occupiedCount
}

// OccupiedCount returns the number of living hosts.
func (l *Lattice) OccupiedCount() int {
	return l.occupiedCount
}

// SiteAt converts grid coordinates to a Site.
func (l *Lattice) SiteAt(x, y int) Site {
	return Site(y*l.width + x)
}

// Coord converts a Site to grid coordinates.
func (l *Lattice) Coord(site Site) (x, y int) {
	return int(site) % l.width, int(site) / l.width
}

func (l *Lattice) Occupied(site Site) bool {
	return l.occupied[site]
}

func (l *Lattice) IsEmpty(site Site) bool {
	return !l.occupied[site]
}

// Occupy marks a site as hosting a living bacterium. Idempotent.
func (l *Lattice) Occupy(site Site) {
	if !l.occupied[site] {
		l.occupied[site] = true
		l.occupiedCount++
	}
}

// Vacate marks a site as empty. Idempotent.
func (l *Lattice) Vacate(site Site) {
	if l.occupied[site] {
		l.occupied[site] = false
		l.occupiedCount--
	}
}

// Neighbors returns the Moore neighbourhood of site: eight sites in the
// interior, fewer on edges and corners. The returned slice must not be modified.
func (l *Lattice) Neighbors(site Site) []Site {
	return l.neighbors[site]
}

// OccupiedSites returns every occupied site in index order.
func (l *Lattice) OccupiedSites() []Site {
	sites := make([]Site, 0, l.occupiedCount)
	for i, occ := range l.occupied {
		if occ {
			sites = append(sites, Site(i))
		}
	}
	return sites
}

// ResourceAvailability is the fraction of free space available to the host
// at site: empty neighbours over eight when structured, the empty fraction of
// the whole lattice when well-mixed.
func (l *Lattice) ResourceAvailability(site Site) float64 {
	if l.mixed {
		return float64(l.EmptyCount()) / float64(l.Size())
	}
	empty := 0
	for _, n := range l.neighbors[site] {
		if !l.occupied[n] {
			empty++
		}
	}
	return float64(empty) / mooreNeighborhood
}

// RandomSite draws a site uniformly, occupied or not.
func (l *Lattice) RandomSite(rng *rand.Rand) Site {
	return Site(rng.Intn(l.Size()))
}

// ReproductionTarget picks the empty site a daughter cell would occupy:
// a random empty neighbour, or any empty site when well-mixed.
// Returns false when no empty target exists.
func (l *Lattice) ReproductionTarget(rng *rand.Rand, site Site) (Site, bool) {
	if l.mixed {
		return l.randomEmptySite(rng)
	}
	var empty [mooreNeighborhood]Site
	n := 0
	for _, nb := range l.neighbors[site] {
		if !l.occupied[nb] {
			empty[n] = nb
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return empty[rng.Intn(n)], true
}

// ContactTarget picks a potential conjugation partner: a random neighbour,
// or any other site when well-mixed. The target may be empty.
func (l *Lattice) ContactTarget(rng *rand.Rand, site Site) (Site, bool) {
	if l.mixed {
		if l.Size() < 2 {
			return 0, false
		}
		other := Site(rng.Intn(l.Size() - 1))
		if other >= site {
			other++
		}
		return other, true
	}
	nbs := l.neighbors[site]
	if len(nbs) == 0 {
		return 0, false
	}
	return nbs[rng.Intn(len(nbs))], true
}

// randomEmptySite draws uniformly among empty sites by rejection; it
// terminates because at least one empty site exists.
func (l *Lattice) randomEmptySite(rng *rand.Rand) (Site, bool) {
	if l.EmptyCount() == 0 {
		return 0, false
	}
	for {
		s := l.RandomSite(rng)
		if !l.occupied[s] {
			return s, true
		}
	}
}

// Within returns every site whose Euclidean distance from center is at most radius.
func (l *Lattice) Within(center Site, radius float64) []Site {
	cx, cy := l.Coord(center)
	r := int(math.Floor(radius))
	var sites []Site
	for y := max(0, cy-r); y <= min(l.height-1, cy+r); y++ {
		for x := max(0, cx-r); x <= min(l.width-1, cx+r); x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			if math.Hypot(dx, dy) <= radius {
				sites = append(sites, l.SiteAt(x, y))
			}
		}
	}
	return sites
}
