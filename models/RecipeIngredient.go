package models

import "time"

// RecipeIngredient is one line of a recipe. The pair (RecipeID, IngredientID)
// is the primary key, so a recipe lists each ingredient at most once.
type RecipeIngredient struct {
	RecipeID     int64 `gorm:"primaryKey;autoIncrement:false" json:"recipe_id"`
	IngredientID int64 `gorm:"primaryKey;autoIncrement:false" json:"ingredient_id"`

	// IngredientName is a copy of the ingredient's name taken when the line
	// was written. It is not kept in sync with later renames.
	IngredientName string `gorm:"not null" json:"ingredient_name"`
	Quantity       string `gorm:"not null" json:"quantity"`

	CreatorID  int64     `gorm:"column:cid;not null" json:"cid"`
	CreatedAt  time.Time `gorm:"column:ctime;autoCreateTime" json:"ctime"`
	ModifiedAt time.Time `gorm:"column:mtime;autoUpdateTime" json:"mtime"`
}
