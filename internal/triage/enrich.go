package triage

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Lookup is the boundary to the external places service: one category
// search around a coordinate pair.
type Lookup interface {
	Nearby(ctx context.Context, lat, lon float64, category FacilityCategory) ([]Facility, error)
}

// enrichment queries all categories, highest priority first.
var enrichmentCategories = []FacilityCategory{
	CategoryHospital,
	CategoryPharmacy,
	CategorySpecialist,
}

// Enricher augments moderate and severe turns with nearby facilities.
// Best effort by contract: absent coordinates or a failed lookup yield
// an empty list, never an error, and never block the turn.
type Enricher struct {
	lookup  Lookup
	limit   int
	timeout time.Duration
	logger  log.Logger
}

// NewEnricher creates an enricher keeping at most limit facilities and
// bounding the whole lookup by timeout. A nil lookup disables
// enrichment entirely.
func NewEnricher(lookup Lookup, limit int, timeout time.Duration, logger log.Logger) *Enricher {
	if logger == nil {
		logger = log.Nop()
	}
	if limit <= 0 {
		limit = 5
	}
	return &Enricher{
		lookup:  lookup,
		limit:   limit,
		timeout: timeout,
		logger:  logger,
	}
}

// Enrich returns ranked nearby facilities for loc, or an empty slice.
// Ranking is category priority (hospital > pharmacy > specialist) with
// ties broken by distance from loc.
func (e *Enricher) Enrich(ctx context.Context, loc *Location) []Facility {
	if e == nil || e.lookup == nil || loc == nil {
		return nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var all []Facility
	for _, cat := range enrichmentCategories {
		got, err := e.lookup.Nearby(ctx, loc.Latitude, loc.Longitude, cat)
		if err != nil {
			// recovered locally, never escalated
			e.logger.Warn(ctx, "facility lookup failed", "category", string(cat), "error", err.Error())
			continue
		}
		all = append(all, got...)
	}

	rankFacilities(all, loc)
	if len(all) > e.limit {
		all = all[:e.limit]
	}
	return all
}

// rankFacilities sorts in place by category priority, then distance.
func rankFacilities(fs []Facility, loc *Location) {
	sort.SliceStable(fs, func(i, j int) bool {
		pi, pj := fs[i].Category.priority(), fs[j].Category.priority()
		if pi != pj {
			return pi < pj
		}
		return haversineKM(loc.Latitude, loc.Longitude, fs[i].Latitude, fs[i].Longitude) <
			haversineKM(loc.Latitude, loc.Longitude, fs[j].Latitude, fs[j].Longitude)
	})
}

const earthRadiusKM = 6371.0

// haversineKM is the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
