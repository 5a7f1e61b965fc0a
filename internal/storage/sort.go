package storage

import (
	"sort"

	"github.com/mcoot/chessmatch/internal/model"
)

// SortByDate orders records oldest first, breaking ties by id
func SortByDate(records []*model.GameRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})
}
