package models

import "time"

type Recipe struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	CreatorID  int64     `gorm:"column:cid;not null" json:"cid"`
	CreatedAt  time.Time `gorm:"column:ctime;autoCreateTime" json:"ctime"`
	ModifiedAt time.Time `gorm:"column:mtime;autoUpdateTime" json:"mtime"`
}
