// Package cache is the query-keyed, in-memory store of server entities.
package cache

import (
	"strconv"

	"taskdeck/core/domain"
)

// Kind is the entity kind of a partition.
type Kind string

const (
	KindTodos      Kind = "todos"
	KindTodayView  Kind = "todayView"
	KindAreas      Kind = "areas"
	KindAreaStats  Kind = "areaStats"
	KindAreaColors Kind = "areaColors"
	KindSession    Kind = "session"
)

// Key identifies one partition: an entity kind plus a filter descriptor.
type Key struct {
	Kind   Kind
	Filter string
}

func (k Key) String() string {
	if k.Filter == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + "?" + k.Filter
}

// TodosKey returns the partition key of a todos list.
func TodosKey(filter domain.TodoFilter) Key {
	return Key{Kind: KindTodos, Filter: filter.Descriptor()}
}

// TodayKey returns the partition key of a today view.
func TodayKey(filter domain.TodayFilter) Key {
	return Key{Kind: KindTodayView, Filter: filter.Descriptor()}
}

// AreasKey returns the partition key of the area list.
func AreasKey() Key {
	return Key{Kind: KindAreas}
}

// AreaStatsKey returns the partition key of one area's stats.
func AreaStatsKey(areaID int64) Key {
	return Key{Kind: KindAreaStats, Filter: "id=" + strconv.FormatInt(areaID, 10)}
}

// AreaStatsID extracts the area id from an AreaStatsKey.
func AreaStatsID(key Key) (int64, bool) {
	if key.Kind != KindAreaStats || len(key.Filter) < 4 || key.Filter[:3] != "id=" {
		return 0, false
	}
	id, err := strconv.ParseInt(key.Filter[3:], 10, 64)
	return id, err == nil
}

// AreaColorsKey returns the partition key of the color palette.
func AreaColorsKey() Key {
	return Key{Kind: KindAreaColors}
}

// SessionKey returns the partition key of the current session.
func SessionKey() Key {
	return Key{Kind: KindSession}
}
