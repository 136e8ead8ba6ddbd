package models

import "time"

type Parent struct {
	ID          uint      `json:"id" gorm:"primary_key"`
	Lang        string    `json:"lang"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	FirebaseUID string    `json:"firebase_uid" gorm:"uniqueIndex"`
	DeviceToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
