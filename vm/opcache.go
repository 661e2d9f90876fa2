package vm

// Operator cache
//
// Every class caches the operators it inherits so repeated resolution does
// not walk the MRO again. Entries are grouped into fixed-size buckets over
// contiguous operator-id ranges. Buckets are allocated on first use with a
// compare-and-swap; entries are written once and only cleared when the
// class itself is destroyed.

const (
	opcBucketSize  = 8
	opcBucketCount = (int(opCount) + opcBucketSize - 1) / opcBucketSize
)

type opcBucket struct {
	entries [opcBucketSize]Object
}

// cacheLookup returns a new reference to the cached operator, or nil.
func (c *Class) cacheLookup(op OperatorID) Object {
	b := c.cache[int(op)/opcBucketSize].Load()
	if b == nil {
		return nil
	}
	c.members.mu.RLock()
	fn := Incref(b.entries[int(op)%opcBucketSize])
	c.members.mu.RUnlock()
	return fn
}

// cacheStore installs fn for op unless another writer got there first.
// It consumes the caller's reference to fn and returns a new reference to
// whichever entry ended up in the cache.
func (c *Class) cacheStore(op OperatorID, fn Object) Object {
	idx := int(op) / opcBucketSize
	b := c.cache[idx].Load()
	if b == nil {
		nb := &opcBucket{}
		if c.cache[idx].CompareAndSwap(nil, nb) {
			b = nb
		} else {
			// Lost the race; the redundant bucket is dropped.
			b = c.cache[idx].Load()
		}
	}
	c.members.mu.Lock()
	slot := &b.entries[int(op)%opcBucketSize]
	if *slot == nil {
		*slot = fn
		Incref(fn)
		c.members.mu.Unlock()
		return fn
	}
	winner := Incref(*slot)
	c.members.mu.Unlock()
	Decref(fn)
	return winner
}

// cachedOperator reports whether op is present in the cache.
func (c *Class) cachedOperator(op OperatorID) bool {
	fn := c.cacheLookup(op)
	Decref(fn)
	return fn != nil
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

// CacheStats describes the state of one class's operator cache.
type CacheStats struct {
	Buckets     int     // allocated buckets
	Entries     int     // cached operators
	Hits        uint64  // resolutions answered from this class's cache
	Misses      uint64  // resolutions that walked past this class
	TableProbes uint64  // binding-table probes on this class
	HitRate     float64 // Hits as a percentage of Hits+Misses
}

// CacheStats returns a snapshot of the operator cache.
func (c *Class) CacheStats() CacheStats {
	var s CacheStats
	c.members.mu.RLock()
	for i := range c.cache {
		b := c.cache[i].Load()
		if b == nil {
			continue
		}
		s.Buckets++
		for _, e := range b.entries {
			if e != nil {
				s.Entries++
			}
		}
	}
	c.members.mu.RUnlock()
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.TableProbes = c.probes.Load()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) * 100 / float64(total)
	}
	return s
}

// CollectCacheStats aggregates operator-cache statistics over every class
// in a ClassTable.
func CollectCacheStats(ct *ClassTable) CacheStats {
	var total CacheStats
	for _, t := range ct.All() {
		if t.class == nil {
			continue
		}
		s := t.class.CacheStats()
		total.Buckets += s.Buckets
		total.Entries += s.Entries
		total.Hits += s.Hits
		total.Misses += s.Misses
		total.TableProbes += s.TableProbes
	}
	if n := total.Hits + total.Misses; n > 0 {
		total.HitRate = float64(total.Hits) * 100 / float64(n)
	}
	return total
}
