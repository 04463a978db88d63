package forecast

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kilianp07/crunch/core/model"
)

// cacheKey is the full input tuple of a forecast. Risk bands are not part
// of it because one forecast carries every band.
type cacheKey struct {
	schedule  uint64
	weeks     int
	mode      model.OvertimeMode
	scope     model.OvertimeScope
	overrides uint64
}

func newCacheKey(p *Plan, sc Scenario) cacheKey {
	return cacheKey{
		schedule:  p.Fingerprint,
		weeks:     sc.TargetWeeks,
		mode:      sc.Mode,
		scope:     sc.Scope,
		overrides: overridesFingerprint(sc.Overrides),
	}
}

// overridesFingerprint hashes the override map in key order.
func overridesFingerprint(o map[string]float64) uint64 {
	if len(o) == 0 {
		return 0
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := xxhash.New()
	var buf [8]byte
	for _, k := range keys {
		_, _ = d.WriteString(k)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(o[k]))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// cache memoizes forecasts. A nil cache never hits.
type cache struct {
	lru *lru.Cache[cacheKey, *Forecast]
}

func newCache(size int) (*cache, error) {
	if size < 0 {
		return nil, nil
	}
	l, err := lru.New[cacheKey, *Forecast](size)
	if err != nil {
		return nil, err
	}
	return &cache{lru: l}, nil
}

func (c *cache) get(k cacheKey) (*Forecast, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(k)
}

func (c *cache) add(k cacheKey, f *Forecast) {
	if c == nil {
		return
	}
	c.lru.Add(k, f)
}

func (c *cache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
