package models

import "time"

// Contact контрагент из адресной книги кошелька. Не проходит через outbox.
type Contact struct {
	LastTransaction time.Time `json:"last_transaction"` // LastTransaction время последней операции с контактом
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Favorite        bool      `json:"favorite"`
	Synced          bool      `json:"synced"`
}
