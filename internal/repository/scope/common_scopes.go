package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// LatestSnapshotFirst orders conversation snapshots newest first. The id
// tiebreak keeps two writes in the same clock tick deterministic.
func LatestSnapshotFirst(db *gorm.DB) *gorm.DB {
	return db.Order("timestamp DESC").Order("id DESC")
}
