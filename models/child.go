package models

type Child struct {
	ID                uint   `json:"id" gorm:"primary_key"`
	Lang              string `json:"lang"`
	Name              string `json:"name"`
	FirebaseUID       string `json:"firebase_uid" gorm:"uniqueIndex"`
	ParentFirebaseUID string `json:"parent_firebase_uid" gorm:"index"`
	IsBinded          bool   `json:"is_binded"`
	DeviceToken       string `json:"-"`
}

// BelongsTo reports whether the child is bound to the given parent.
func (c Child) BelongsTo(parentFirebaseUID string) bool {
	return c.IsBinded && c.ParentFirebaseUID != "" && c.ParentFirebaseUID == parentFirebaseUID
}
