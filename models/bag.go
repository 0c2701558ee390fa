package models

import (
	"encoding/json"
	"fmt"
)

// Bag is the session-held shopping bag: product id (as a string key) mapped to
// either a bare quantity or a per-size quantity breakdown.
type Bag map[string]BagItem

// BagItem is one bag entry. Exactly one of Quantity or ItemsBySize is in use:
// ItemsBySize is nil for products without size variants.
type BagItem struct {
	Quantity    int
	ItemsBySize map[string]int
}

func (bi *BagItem) UnmarshalJSON(data []byte) error {
	var qty int
	if err := json.Unmarshal(data, &qty); err == nil {
		bi.Quantity = qty
		bi.ItemsBySize = nil
		return nil
	}
	var wrapper struct {
		ItemsBySize map[string]int `json:"items_by_size"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("bag item: expected a quantity or an items_by_size object")
	}
	if wrapper.ItemsBySize == nil {
		return fmt.Errorf("bag item: missing items_by_size")
	}
	bi.Quantity = 0
	bi.ItemsBySize = wrapper.ItemsBySize
	return nil
}

func (bi BagItem) MarshalJSON() ([]byte, error) {
	if bi.ItemsBySize != nil {
		return json.Marshal(struct {
			ItemsBySize map[string]int `json:"items_by_size"`
		}{bi.ItemsBySize})
	}
	return json.Marshal(bi.Quantity)
}

// ParseBag decodes a bag from its session JSON form. An empty string is an
// empty bag.
func ParseBag(raw string) (Bag, error) {
	bag := Bag{}
	if raw == "" {
		return bag, nil
	}
	if err := json.Unmarshal([]byte(raw), &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// Encode serializes the bag back to its session JSON form.
func (b Bag) Encode() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
