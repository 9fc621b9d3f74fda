package domain

import "time"

// User is the stable identity a Transaction is owned by. The core never
// deletes a User and never interprets CredentialHash beyond storing it.
type User struct {
	ID             string
	CredentialHash string
	CreatedAt      time.Time
}
