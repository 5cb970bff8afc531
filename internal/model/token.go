package model

import "time"

// AccessToken models an entry in the `user_access_tokens` collection.
// Each row back-references the user it was issued to; it does not own
// the user.  Tokens carry no expiry and live until they are deleted.
//
// Fields:
//  ID        – opaque identifier of the row.
//  Token     – the signed bearer credential (unique).
//  UserID    – owner of the token.
//  CreatedAt – timestamp of issuance.
type AccessToken struct {
	ID        string    `json:"_id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
