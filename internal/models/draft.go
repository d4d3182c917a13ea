package models

import "gorm.io/gorm"

// Draft is a trade entry form persisted between requests.
type Draft struct {
	gorm.Model
	Key string `gorm:"column:draft_key;uniqueIndex;not null"`
	// Owner is the Session.Key of the browser session that started the draft.
	Owner    string `gorm:"column:owner_key;index;not null;default:''"`
	Exchange string
	// Values is the JSON snapshot of the form state.
	Values string `gorm:"column:form_values;type:text;not null"`
}
