package scoring

import (
	"sort"

	"github.com/shopspring/decimal"

	"wallet-score/internal/domain"
)

// gradeBands maps inclusive lower bounds to grades, highest first.
var gradeBands = []struct {
	min   int
	grade domain.Grade
}{
	{90, domain.GradeS},
	{80, domain.GradeA},
	{65, domain.GradeB},
	{50, domain.GradeC},
	{35, domain.GradeD},
}

// GradeFor returns the letter grade of a composite score.
func GradeFor(score int) domain.Grade {
	for _, b := range gradeBands {
		if score >= b.min {
			return b.grade
		}
	}
	return domain.GradeF
}

// Badge definitions.
var (
	BadgeOGHolder = domain.Badge{
		ID: "og_holder", Name: "OG Holder", Icon: "👴",
		Description: "Wallet active for over 2 years", Rarity: domain.RarityLegendary,
	}
	BadgeDiamondHands = domain.Badge{
		ID: "diamond_hands", Name: "Diamond Hands", Icon: "💎",
		Description: "Wallet active for over 1 year", Rarity: domain.RarityEpic,
	}
	BadgeFreshWallet = domain.Badge{
		ID: "fresh_wallet", Name: "Fresh Wallet", Icon: "🌱",
		Description: "Wallet less than 30 days old", Rarity: domain.RarityCommon,
	}
	BadgeWhale = domain.Badge{
		ID: "whale", Name: "Whale", Icon: "🐋",
		Description: "Holdings exceed 100 SOL", Rarity: domain.RarityEpic,
	}
	BadgeDolphin = domain.Badge{
		ID: "dolphin", Name: "Dolphin", Icon: "🐬",
		Description: "Holdings exceed 10 SOL", Rarity: domain.RarityRare,
	}
	BadgeActiveTrader = domain.Badge{
		ID: "active_trader", Name: "Active Trader", Icon: "📈",
		Description: "Over 1,000 transactions", Rarity: domain.RarityEpic,
	}
	BadgeFrequentUser = domain.Badge{
		ID: "frequent_user", Name: "Frequent User", Icon: "⚡",
		Description: "Over 100 transactions", Rarity: domain.RarityRare,
	}
	BadgeNFTWhale = domain.Badge{
		ID: "nft_whale", Name: "NFT Whale", Icon: "🎨",
		Description: "Owns 50+ NFTs", Rarity: domain.RarityEpic,
	}
	BadgeNFTCollector = domain.Badge{
		ID: "nft_collector", Name: "NFT Collector", Icon: "🖼️",
		Description: "Owns 10+ NFTs", Rarity: domain.RarityRare,
	}
	BadgeTokenDiversifier = domain.Badge{
		ID: "token_diversifier", Name: "Token Diversifier", Icon: "🌈",
		Description: "Holds 10+ different tokens", Rarity: domain.RarityRare,
	}
	BadgeDeFiDegen = domain.Badge{
		ID: "defi_degen", Name: "DeFi Degen", Icon: "🔥",
		Description: "Has staked SOL in liquid staking protocols", Rarity: domain.RarityRare,
	}
	BadgeStakingMaxi = domain.Badge{
		ID: "staking_maxi", Name: "Staking Maxi", Icon: "🔒",
		Description: "Over 50% of holdings in staked SOL", Rarity: domain.RarityEpic,
	}
	BadgePerfectScore = domain.Badge{
		ID: "perfect_score", Name: "Perfect Score", Icon: "👑",
		Description: "Achieved maximum score in any category", Rarity: domain.RarityLegendary,
	}
	BadgeSTier = domain.Badge{
		ID: "s_tier", Name: "S-Tier", Icon: "⭐",
		Description: "Overall S grade (90+ score)", Rarity: domain.RarityLegendary,
	}
)

// BadgeInput is everything a badge predicate may look at.
type BadgeInput struct {
	Signals   domain.SignalSet
	Breakdown domain.ScoreBreakdown
	Score     int
}

// BadgeRule awards Badge when Applies holds. Within a category only the
// first matching rule fires.
type BadgeRule struct {
	Category string
	Badge    domain.Badge
	Applies  func(in BadgeInput) bool
}

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
	half    = decimal.NewFromFloat(0.5)
)

// BadgeRules is the ordered badge table.
var BadgeRules = []BadgeRule{
	{"age", BadgeOGHolder, func(in BadgeInput) bool { return in.Signals.AgeDays >= 730 }},
	{"age", BadgeDiamondHands, func(in BadgeInput) bool { return in.Signals.AgeDays >= 365 }},
	{"age", BadgeFreshWallet, func(in BadgeInput) bool { return in.Signals.AgeDays < 30 }},

	{"value", BadgeWhale, func(in BadgeInput) bool { return in.Signals.TotalValueHeld.GreaterThanOrEqual(hundred) }},
	{"value", BadgeDolphin, func(in BadgeInput) bool { return in.Signals.TotalValueHeld.GreaterThanOrEqual(ten) }},

	{"activity", BadgeActiveTrader, func(in BadgeInput) bool { return in.Signals.TxCount >= 1000 }},
	{"activity", BadgeFrequentUser, func(in BadgeInput) bool { return in.Signals.TxCount >= 100 }},

	{"nft", BadgeNFTWhale, func(in BadgeInput) bool { return in.Signals.NFTCount >= 50 }},
	{"nft", BadgeNFTCollector, func(in BadgeInput) bool { return in.Signals.NFTCount >= 10 }},

	{"tokens", BadgeTokenDiversifier, func(in BadgeInput) bool { return in.Signals.FungibleTokenCount >= 10 }},

	{"staking", BadgeDeFiDegen, func(in BadgeInput) bool { return in.Signals.StakedValue.IsPositive() }},
	{"staking-ratio", BadgeStakingMaxi, func(in BadgeInput) bool {
		return in.Signals.StakedValue.IsPositive() && in.Signals.StakeRatio().GreaterThan(half)
	}},

	{"perfect", BadgePerfectScore, func(in BadgeInput) bool { return in.Breakdown.HasPerfect() }},
	{"tier", BadgeSTier, func(in BadgeInput) bool { return in.Score >= 90 }},
}

// AwardBadges evaluates BadgeRules and returns the awarded badges,
// legendary first. Ties keep table order.
func AwardBadges(in BadgeInput) []domain.Badge {
	fired := make(map[string]bool)
	badges := make([]domain.Badge, 0, 4)

	for _, rule := range BadgeRules {
		if fired[rule.Category] {
			continue
		}
		if rule.Applies(in) {
			fired[rule.Category] = true
			badges = append(badges, rule.Badge)
		}
	}

	sort.SliceStable(badges, func(i, j int) bool {
		return badges[i].Rarity.Rank() < badges[j].Rarity.Rank()
	})
	return badges
}
