package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID                   int64    `json:"id"`
	Name                 string   `json:"name"`
	Slug                 string   `json:"slug"`
	CustomizationOptions []string `json:"customization_options"`
}

type Size struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

type EssenceDetail struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	SensoryProfile string `json:"sensory_profile,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Ambient        string `json:"ambient,omitempty"`
	IsActive       bool   `json:"is_active"`
	ImageURL       string `json:"image_url,omitempty"`
	Order          int    `json:"order"`
}

type Product struct {
	ID               int64           `json:"id"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Size             *Size           `json:"size"`
	Essence          *EssenceDetail  `json:"essence"`
	Image            string          `json:"image,omitempty"`
	Category         string          `json:"category,omitempty"`
	ShortDescription string          `json:"short_description,omitempty"`
	FullDescription  string          `json:"full_description,omitempty"`
	StockQuantity    int             `json:"stock_quantity"`
	IsBestseller     bool            `json:"is_bestseller"`
}

type CustomizationOption struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Instruction       string           `json:"instruction,omitempty"`
	InputType         string           `json:"input_type,omitempty"`
	AvailableOptions  []string         `json:"available_options"`
	PriceExtra        *decimal.Decimal `json:"price_extra"`
	FreeAboveQuantity *int             `json:"free_above_quantity"`
}

// StateOption is one entry of the federal-state picker.
type StateOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
