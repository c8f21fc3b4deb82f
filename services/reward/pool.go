package reward

type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
)

// Entry is one possible outcome of a draw.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      Rarity `json:"rarity"`
	XPBonus     int64  `json:"xp_bonus"`
	PointsBonus int64  `json:"points_bonus"`
	Weight      int    `json:"weight"`
}

type Pool []Entry

// DefaultPool sums to 200: Common 60%, Uncommon 25%, Rare 10%, Epic 4%, Legendary 1%.
var DefaultPool = Pool{
	{Name: "Small XP Boost", Description: "+50 experience", Rarity: RarityCommon, XPBonus: 50, Weight: 60},
	{Name: "Donation Points", Description: "+25 donation points", Rarity: RarityCommon, PointsBonus: 25, Weight: 60},
	{Name: "Medium XP Boost", Description: "+150 experience", Rarity: RarityUncommon, XPBonus: 150, Weight: 30},
	{Name: "Bonus Points", Description: "+75 donation points", Rarity: RarityUncommon, PointsBonus: 75, Weight: 20},
	{Name: "Large XP Boost", Description: "+300 experience", Rarity: RarityRare, XPBonus: 300, Weight: 12},
	{Name: "Major Points", Description: "+150 donation points", Rarity: RarityRare, PointsBonus: 150, Weight: 8},
	{Name: "Epic XP Surge", Description: "+500 experience", Rarity: RarityEpic, XPBonus: 500, Weight: 4},
	{Name: "Epic Donation Bonus", Description: "+250 donation points", Rarity: RarityEpic, PointsBonus: 250, Weight: 4},
	{Name: "LEGENDARY XP BLESSING", Description: "+1000 experience", Rarity: RarityLegendary, XPBonus: 1000, Weight: 1},
	{Name: "LEGENDARY DONATION SURGE", Description: "+500 donation points", Rarity: RarityLegendary, PointsBonus: 500, Weight: 1},
}

func (p Pool) TotalWeight() int {
	total := 0
	for _, e := range p {
		total += max(e.Weight, 0)
	}
	return total
}

// BandWeights sums the weights per rarity.
func (p Pool) BandWeights() map[Rarity]int {
	out := make(map[Rarity]int)
	for _, e := range p {
		out[e.Rarity] += max(e.Weight, 0)
	}
	return out
}

// RandSource yields uniform integers in [0, n).
type RandSource interface {
	Intn(n int) int
}

// Roll draws one entry. The pool must have a positive total weight.
func Roll(pool Pool, src RandSource) Entry {
	total := pool.TotalWeight()
	if total <= 0 {
		panic("reward: pool has no weight")
	}

	remainder := src.Intn(total)
	for _, e := range pool {
		remainder -= max(e.Weight, 0)
		if remainder < 0 {
			return e
		}
	}
	return pool[len(pool)-1]
}
