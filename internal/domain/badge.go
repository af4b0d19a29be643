package domain

// Rarity ranks badges; legendary badges are listed first.
type Rarity string

const (
	RarityLegendary Rarity = "legendary"
	RarityEpic      Rarity = "epic"
	RarityRare      Rarity = "rare"
	RarityCommon    Rarity = "common"
)

// Rank returns the sort position of the rarity (lower sorts first).
func (r Rarity) Rank() int {
	switch r {
	case RarityLegendary:
		return 0
	case RarityEpic:
		return 1
	case RarityRare:
		return 2
	default:
		return 3
	}
}

// Badge is an achievement awarded to a scored account.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Rarity      Rarity `json:"rarity"`
}
