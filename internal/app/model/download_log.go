package model

import "time"

// DownloadLog records one report download. Entries are append-only.
type DownloadLog struct {
	ID        uint      `db:"id" gorm:"primaryKey"`
	FromDate  time.Time `db:"from_date" gorm:"not null"`
	ToDate    time.Time `db:"to_date" gorm:"not null"`
	Count     int       `db:"count" gorm:"not null"`
	User      string    `db:"user" gorm:"size:128;not null"`
	Timestamp time.Time `db:"timestamp" gorm:"not null;index"`
}

func (DownloadLog) TableName() string {
	return "download_logs"
}
