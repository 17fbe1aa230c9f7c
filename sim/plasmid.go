package sim

// Plasmid is one plasmid instance resident at a single site.
// Copies made by fission or conjugation are new instances sharing PID and Traits.
type Plasmid struct {
	PID    int
	Traits Traits
	site   Site
}

// Site returns the site currently owning this plasmid.
func (p *Plasmid) Site() Site { return p.site }

func (p *Plasmid) PB() float64 { return p.Traits.PB() }
func (p *Plasmid) TP() float64 { return p.Traits.TP() }

// Registry holds every plasmid instance indexed by its resident site, and
// interns trait vectors into pids.
//
// Residents of a site are kept in insertion order; that order is the fixed
// enumeration order used by weighted transfer selection and by the
// clone-order rule of identical daughter load.
type Registry struct {
	residents [][]*Plasmid
	pids      map[Traits]int
	lastPID   int
	count     int
}

// NewRegistry creates an empty registry for a lattice of the given size.
func NewRegistry(sites int) *Registry {
	return &Registry{
		residents: make([][]*Plasmid, sites),
		pids:      make(map[Traits]int),
	}
}

// PIDFor returns the pid of a trait vector, allocating the next pid the
// first time the vector is seen.
func (r *Registry) PIDFor(t Traits) int {
	if pid, ok := r.pids[t]; ok {
		return pid
	}
	r.lastPID++
	r.pids[t] = r.lastPID
	return r.lastPID
}

// Create places a plasmid with the given traits at site.
func (r *Registry) Create(site Site, t Traits) *Plasmid {
	p := &Plasmid{PID: r.PIDFor(t), Traits: t, site: site}
	r.add(p)
	return p
}

// Clone places an exact copy of p at target. No trait changes on copy.
func (r *Registry) Clone(p *Plasmid, target Site) *Plasmid {
	c := &Plasmid{PID: p.PID, Traits: p.Traits, site: target}
	r.add(c)
	return c
}

// Retrait replaces the traits of p in place and re-derives its pid.
func (r *Registry) Retrait(p *Plasmid, t Traits) {
	p.Traits = t
	p.PID = r.PIDFor(t)
}

// Remove destroys p. Removing a plasmid that is no longer resident is a no-op.
func (r *Registry) Remove(p *Plasmid) {
	res := r.residents[p.site]
	for i, q := range res {
		if q == p {
			r.residents[p.site] = append(res[:i:i], res[i+1:]...)
			r.count--
			return
		}
	}
}

// Clear destroys every plasmid at site and returns how many were removed.
func (r *Registry) Clear(site Site) int {
	n := len(r.residents[site])
	r.residents[site] = nil
	r.count -= n
	return n
}

// Residents returns the plasmids at site in enumeration order.
// The returned slice must not be modified.
func (r *Registry) Residents(site Site) []*Plasmid {
	return r.residents[site]
}

// HostsPID reports whether any resident of site has the given pid.
func (r *Registry) HostsPID(site Site, pid int) bool {
	for _, p := range r.residents[site] {
		if p.PID == pid {
			return true
		}
	}
	return false
}

// HostsInc reports whether any resident of site belongs to incompatibility group inc.
func (r *Registry) HostsInc(site Site, inc int) bool {
	for _, p := range r.residents[site] {
		if p.Traits.Inc == inc {
			return true
		}
	}
	return false
}

// Count returns the number of plasmid instances across all sites.
func (r *Registry) Count() int {
	return r.count
}

// All returns every plasmid instance in site order.
func (r *Registry) All() []*Plasmid {
	all := make([]*Plasmid, 0, r.count)
	for _, res := range r.residents {
		all = append(all, res...)
	}
	return all
}

func (r *Registry) add(p *Plasmid) {
	r.residents[p.site] = append(r.residents[p.site], p)
	r.count++
}
