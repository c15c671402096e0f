package deadline

// ContractExpiration は労働契約の期限区分表です。
var ContractExpiration = Profile{
	Name: "contract_expiration",
	Thresholds: []Threshold{
		{MaxDays: 7, Tier: TierExpiringCritical, Urgency: UrgencyCritical},
		{MaxDays: 15, Tier: TierExpiringUrgent, Urgency: UrgencyHigh},
		{MaxDays: 30, Tier: TierExpiringSoon, Urgency: UrgencyMedium},
	},
	Expired: Bucket{Tier: TierExpired, Urgency: UrgencyCritical},
	Today:   Bucket{Tier: TierExpiresToday, Urgency: UrgencyCritical},
	None:    Bucket{Tier: TierActive, Urgency: UrgencyLow},
}

// DIATWindow は労災申告 (DIAT) の 24 時間期限の区分表です。
// 対象日は事故発生日の翌日です。
var DIATWindow = Profile{
	Name: "diat_window",
	Thresholds: []Threshold{
		{MaxDays: 1, Tier: TierDueTomorrow, Urgency: UrgencyHigh},
	},
	Expired: Bucket{Tier: TierExpired, Urgency: UrgencyCritical},
	Today:   Bucket{Tier: TierExpiresToday, Urgency: UrgencyCritical},
	None:    Bucket{Tier: TierNotUrgent, Urgency: UrgencyLow},
}

// NoExpiration は期限を持たない対象 (無期契約など) の分類結果を返します。
func NoExpiration() Classification {
	return Classification{Tier: TierActive, Urgency: UrgencyLow}
}
