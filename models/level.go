package models

// LevelTier is a row of the levelEarning table: reaching LeadsRequired approvals
// in a month pays Earning once.
type LevelTier struct {
	Name          string  `json:"name" bson:"_id"`
	LeadsRequired int     `json:"leadsRequired" bson:"leadsRequired" validate:"gte=0"`
	Earning       float64 `json:"earning" bson:"earning" validate:"gte=0"`
}
