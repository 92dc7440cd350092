package models

import "time"

// Protocol represents a registered protocol identity. One protocol may group
// many addresses.
type Protocol struct {
	ID          int64     `json:"id"`
	Name        string    `json:"protocolName"`
	Symbol      *string   `json:"protocolSymbol"`
	Type        *string   `json:"protocolType"`
	MainAddress *string   `json:"mainAddress"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
