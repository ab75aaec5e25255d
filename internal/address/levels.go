package address

import (
	"sort"
	"strings"
)

// span is a half-open [start, end) range of rune offsets in the source text.
type span struct {
	start int
	end   int
}

// spanIndex locates entity values inside the original address text. Each
// claimed range is marked used so the same characters are never attributed
// to two entities; repeated values resolve to later occurrences.
type spanIndex struct {
	addr   []rune
	used   map[int]bool
	byType map[string][]span
}

func newSpanIndex(entities map[string]string, text string) *spanIndex {
	ix := &spanIndex{
		addr:   []rune(text),
		used:   make(map[int]bool),
		byType: make(map[string][]span),
	}

	for _, entityType := range indexOrder(entities) {
		for _, value := range strings.Split(entities[entityType], ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if sp, ok := ix.claim([]rune(value), 0); ok {
				ix.byType[entityType] = append(ix.byType[entityType], sp)
			}
		}
	}
	return ix
}

// indexOrder returns the entity types present in the map, priority types
// first, unknown types after them in sorted order.
func indexOrder(entities map[string]string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, t := range PriorityOrder {
		if _, ok := entities[t]; ok {
			order = append(order, t)
			seen[t] = true
		}
	}
	var rest []string
	for t := range entities {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// claim finds the first occurrence of value at or after from whose range is
// entirely unclaimed, marks it used, and returns it. Occurrences overlapping
// an already claimed range are skipped.
func (ix *spanIndex) claim(value []rune, from int) (span, bool) {
	for start := from; start+len(value) <= len(ix.addr); start++ {
		if !runesMatch(ix.addr[start:start+len(value)], value) {
			continue
		}
		end := start + len(value)
		if ix.overlapsUsed(start, end) {
			// Resume the search past this occurrence.
			start = end - 1
			continue
		}
		for i := start; i < end; i++ {
			ix.used[i] = true
		}
		return span{start: start, end: end}, true
	}
	return span{}, false
}

func (ix *spanIndex) overlapsUsed(start, end int) bool {
	for i := start; i < end; i++ {
		if ix.used[i] {
			return true
		}
	}
	return false
}

func runesMatch(a, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// minmax scans the spans of the given types and returns the lowest-start and
// highest-start spans among those satisfying cond.
func (ix *spanIndex) minmax(types []string, cond func(span) bool) (lo, hi span, ok bool) {
	for _, t := range types {
		for _, sp := range ix.byType[t] {
			if cond != nil && !cond(sp) {
				continue
			}
			if !ok {
				lo, hi = sp, sp
				ok = true
				continue
			}
			if sp.start < lo.start {
				lo = sp
			}
			if sp.start > hi.start {
				hi = sp
			}
		}
	}
	return lo, hi, ok
}

// slice returns the trimmed text between lo's start and hi's end.
func (ix *spanIndex) slice(lo, hi span) string {
	if lo.start < 0 || hi.end > len(ix.addr) || lo.start >= hi.end {
		return ""
	}
	return strings.TrimSpace(string(ix.addr[lo.start:hi.end]))
}

// remark returns the characters of the address not claimed by any entity.
func (ix *spanIndex) remark() string {
	var b strings.Builder
	for i, r := range ix.addr {
		if !ix.used[i] {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// maxByEnd returns the span with the largest end offset among the present
// candidates.
func maxByEnd(candidates ...*span) (span, bool) {
	var best span
	found := false
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !found || c.end > best.end {
			best = *c
			found = true
		}
	}
	return best, found
}

var (
	adminTypes     = []string{TypeProv, TypeCity, TypeDistrict, TypeTown}
	poiGroupTypes  = []string{TypePOI, TypeSubPOI, TypeCommunity, TypeDevZone, TypeVillageGroup}
	roadTypes      = []string{TypeRoad, TypeDirection}
	poiAnnexTypes  = []string{TypePOI, TypeSubPOI, TypeRoad, TypeRoadNo, TypeDirection, TypeCommunity, TypeDevZone, TypeVillageGroup, TypeHouseNo}
	defaultLevel1  = "广东省"
	defaultNoLimit = func(span) bool { return true }
)

// Standardize projects an entity map onto the 11-level address format.
//
// Entity values may contain comma-separated multiple spans. Levels 1-4 come
// straight from the administrative entities (level 1 falls back to the
// deployment region default when the province is absent). Levels 5-11 are cut
// from the original text between anchor spans: the road segment sits between
// the last administrative division and the first POI-group entity, annex and
// unit/floor/room levels follow strictly after the rightmost span already
// consumed. Unclaimed characters become the remark.
func Standardize(entities map[string]string, originalText string) *Levels {
	ix := newSpanIndex(entities, originalText)

	levels := &Levels{
		OriginalText: originalText,
		Level1:       entities[TypeProv],
		Level2:       entities[TypeCity],
		Level3:       entities[TypeDistrict],
		Level4:       entities[TypeTown],
	}
	if levels.Level1 == "" {
		levels.Level1 = defaultLevel1
	}

	_, adminMax, hasAdmin := ix.minmax(adminTypes, defaultNoLimit)
	poiMin, _, hasPOI := ix.minmax(poiGroupTypes, defaultNoLimit)

	if hasPOI {
		standardizeWithPOI(ix, levels, poiMin, adminMax, hasAdmin)
	} else {
		standardizeWithoutPOI(ix, levels, adminMax, hasAdmin)
	}

	levels.Remark = ix.remark()
	return levels
}

func standardizeWithPOI(ix *spanIndex, levels *Levels, poiMin, adminMax span, hasAdmin bool) {
	levels.Level7 = ix.slice(poiMin, poiMin)

	beforePOI := func(s span) bool { return s.start < poiMin.start }
	roadCond := beforePOI
	if hasAdmin {
		roadCond = func(s span) bool { return adminMax.end-1 < s.start && s.start < poiMin.start }
	}

	roadLo, roadHi, hasRoad := ix.minmax(roadTypes, roadCond)
	if hasRoad {
		levels.Level5 = ix.slice(roadLo, roadHi)
	}

	roadNoCond := roadCond
	if hasRoad {
		roadNoCond = func(s span) bool { return roadHi.end-1 < s.start && s.start < poiMin.start }
	}
	roadNoLo, roadNoHi, hasRoadNo := ix.minmax([]string{TypeRoadNo}, roadNoCond)
	if hasRoadNo {
		levels.Level6 = ix.slice(roadNoLo, roadNoHi)
	}

	annexLo, annexHi, hasAnnex := ix.minmax(poiAnnexTypes, func(s span) bool { return s.start > poiMin.end-1 })
	if hasAnnex {
		levels.Level8 = ix.slice(annexLo, annexHi)
	}

	cellBoundary := poiMin
	if hasAnnex {
		cellBoundary = annexHi
	}
	cellLo, cellHi, hasCell := ix.minmax([]string{TypeCellNo}, func(s span) bool { return s.start > cellBoundary.end-1 })
	if hasCell {
		levels.Level9 = ix.slice(cellLo, cellHi)
	}

	latest, _ := maxByEnd(
		optional(adminMax, hasAdmin), optional(roadHi, hasRoad), optional(roadNoHi, hasRoadNo),
		&poiMin, optional(annexHi, hasAnnex), optional(cellHi, hasCell),
	)

	floorLo, floorHi, hasFloor := ix.minmax([]string{TypeFloorNo}, func(s span) bool { return s.start > latest.end-1 })
	if hasFloor {
		levels.Level10 = ix.slice(floorLo, floorHi)
	}

	latest, _ = maxByEnd(&latest, optional(floorHi, hasFloor))
	roomLo, roomHi, hasRoom := ix.minmax([]string{TypeRoomNo}, func(s span) bool { return s.start > latest.end-1 })
	if hasRoom {
		levels.Level11 = ix.slice(roomLo, roomHi)
	}
}

func standardizeWithoutPOI(ix *spanIndex, levels *Levels, adminMax span, hasAdmin bool) {
	roadCond := defaultNoLimit
	if hasAdmin {
		roadCond = func(s span) bool { return s.start > adminMax.end-1 }
	}
	roadLo, roadHi, hasRoad := ix.minmax(roadTypes, roadCond)
	if hasRoad {
		levels.Level5 = ix.slice(roadLo, roadHi)
	}

	roadNoCond := roadCond
	if hasRoad {
		roadNoCond = func(s span) bool { return s.start > roadHi.end-1 }
	}
	roadNoLo, roadNoHi, hasRoadNo := ix.minmax([]string{TypeRoadNo}, roadNoCond)
	if hasRoadNo {
		levels.Level6 = ix.slice(roadNoLo, roadNoHi)
	}

	// Without a POI anchor or administrative divisions there is nothing to
	// hang the building-level fields on.
	if !hasAdmin {
		return
	}

	latest, hasLatest := maxByEnd(&adminMax, optional(roadHi, hasRoad), optional(roadNoHi, hasRoadNo))
	if !hasLatest {
		return
	}

	sequential := []struct {
		entityType string
		target     *string
	}{
		{TypeHouseNo, &levels.Level8},
		{TypeCellNo, &levels.Level9},
		{TypeFloorNo, &levels.Level10},
		{TypeRoomNo, &levels.Level11},
	}
	for _, step := range sequential {
		boundary := latest
		lo, hi, ok := ix.minmax([]string{step.entityType}, func(s span) bool { return s.start > boundary.end-1 })
		if ok {
			*step.target = ix.slice(lo, hi)
			latest, _ = maxByEnd(&latest, &hi)
		}
	}
}

func optional(s span, present bool) *span {
	if !present {
		return nil
	}
	copied := s
	return &copied
}
