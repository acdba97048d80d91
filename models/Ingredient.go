package models

// Ingredient is a named pantry item that recipe lines reference.
type Ingredient struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null" json:"name"`
}
