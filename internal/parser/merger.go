package parser

import (
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
)

// MergeConfig configures how auxiliary data is merged into a ValuesList.
type MergeConfig struct {
	// SkipDuplicateColumns drops auxiliary columns whose display name and
	// unit already exist under the same message type.
	SkipDuplicateColumns bool
}

// DefaultMergeConfig returns the default merge configuration.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		SkipDuplicateColumns: true,
	}
}

// MergeValues merges auxiliary entries (for example an external sensor
// table) into a ValuesList by message type name. It handles:
// 1. Placing an auxiliary entry right after the last entry of the same
//    message type, or at the end when the type is new
// 2. Stamping every merged column with its entry's message type
// 3. Dropping duplicate data columns when configured (time columns are
//    always kept so the entry keeps its time base)
//
// Each auxiliary entry stays a separate entry so its samples keep their own
// time base. The inputs are not modified.
func MergeValues(primary, aux models.ValuesList, config MergeConfig) models.ValuesList {
	result := models.ValuesList{Entries: make([]models.ValuesEntry, 0, len(primary.Entries)+len(aux.Entries))}
	result.Entries = append(result.Entries, primary.Entries...)

	for _, entry := range aux.Entries {
		merged := models.ValuesEntry{
			MessageType: entry.MessageType,
			Columns:     make([]models.Column, 0, len(entry.Columns)),
		}

		last := lastEntryOfType(result.Entries, entry.MessageType)
		if last >= 0 {
			// Adopt the existing spelling of the type name.
			merged.MessageType = result.Entries[last].MessageType
		}

		data := 0
		for _, col := range entry.Columns {
			isTime := IsTimeColumn(col.DisplayName)
			if !isTime && config.SkipDuplicateColumns && hasColumn(result.Entries, merged.MessageType, col) {
				continue
			}
			if !isTime {
				data++
			}
			col.MessageType = merged.MessageType
			merged.Columns = append(merged.Columns, col)
		}
		// An entry left with only its time columns has nothing to add.
		if data == 0 {
			continue
		}

		if last < 0 {
			result.Entries = append(result.Entries, merged)
			continue
		}
		result.Entries = append(result.Entries, models.ValuesEntry{})
		copy(result.Entries[last+2:], result.Entries[last+1:])
		result.Entries[last+1] = merged
	}

	return result
}

func lastEntryOfType(entries []models.ValuesEntry, messageType string) int {
	for i := len(entries) - 1; i >= 0; i-- {
		if strings.EqualFold(entries[i].MessageType, messageType) {
			return i
		}
	}
	return -1
}

// hasColumn reports whether a column with the same display name and unit
// exists under the message type.
func hasColumn(entries []models.ValuesEntry, messageType string, col models.Column) bool {
	for _, e := range entries {
		if !strings.EqualFold(e.MessageType, messageType) {
			continue
		}
		for _, c := range e.Columns {
			if c.DisplayName == col.DisplayName && c.Unit == col.Unit {
				return true
			}
		}
	}
	return false
}
