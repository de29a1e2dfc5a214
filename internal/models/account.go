package models

import "time"

// Account представляет биржевой аккаунт с API ключами.
//
// Ключи хранятся в БД в зашифрованном виде (AES-256-GCM) и расшифровываются
// только при создании клиента биржи. Каждый аккаунт принадлежит ровно одной
// группе, поэтому клиент аккаунта никогда не используется из двух групп.
type Account struct {
	ID         int       `json:"id" db:"id"`
	Label      string    `json:"label" db:"label"`
	GroupLabel string    `json:"group_label" db:"group_label"` // к какой группе относится
	Position   int       `json:"position" db:"position"`       // порядок внутри группы
	APIKey     string    `json:"-" db:"api_key"`               // зашифрован
	SecretKey  string    `json:"-" db:"secret_key"`            // зашифрован
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
