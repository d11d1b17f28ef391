package domain

import "strings"

type ShippingAddress struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" binding:"required"`
}

func (a ShippingAddress) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.City, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
