package models

import "time"

// Province is a bilingual (English / Khmer) geographic reference.
type Province struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NameEN    string    `gorm:"column:name_en;size:100;not null;uniqueIndex" json:"name_en"`
	NameKM    string    `gorm:"column:name_km;size:100;not null;uniqueIndex" json:"name_km"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
