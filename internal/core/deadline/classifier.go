package deadline

import (
	"errors"
	"fmt"
	"time"
)

// Tier は期限に対する段階区分です。
type Tier string

const (
	TierExpired          Tier = "expired"
	TierExpiresToday     Tier = "expires_today"
	TierExpiringCritical Tier = "expiring_critical"
	TierExpiringUrgent   Tier = "expiring_urgent"
	TierExpiringSoon     Tier = "expiring_soon"
	TierActive           Tier = "active"
	TierDueTomorrow      Tier = "due_tomorrow"
	TierNotUrgent        Tier = "not_urgent"
)

// Urgency は利用者に提示する緊急度です。
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ErrInvalidProfile は閾値定義が不正な場合に返却されます。
var ErrInvalidProfile = errors.New("deadline: invalid profile")

// Bucket は段階と緊急度の組です。
type Bucket struct {
	Tier    Tier
	Urgency Urgency
}

// Threshold は残日数の上限 (含む) と、それに対応する区分です。
type Threshold struct {
	MaxDays int
	Tier    Tier
	Urgency Urgency
}

// Profile は期限種別ごとの分類表です。
// Thresholds は MaxDays の昇順で並んでいる必要があります。
type Profile struct {
	Name       string
	Thresholds []Threshold
	Expired    Bucket
	Today      Bucket
	None       Bucket
}

// Classification は分類結果です。
// Days は画面表示用の日数で、期限切れの場合は経過日数、それ以外は残日数です。
type Classification struct {
	Tier     Tier
	Urgency  Urgency
	Days     int
	DiffDays int
}

// IsExpired は期限切れまたは当日期限かを返します。
func (c Classification) IsExpired() bool {
	return c.Tier == TierExpired || c.Tier == TierExpiresToday
}

// Validate は閾値が正の値で厳密に昇順であることを検証します。
func (p Profile) Validate() error {
	prev := 0
	for i, th := range p.Thresholds {
		if th.MaxDays <= 0 {
			return fmt.Errorf("%w: %s threshold %d must be positive", ErrInvalidProfile, p.Name, i)
		}
		if i > 0 && th.MaxDays <= prev {
			return fmt.Errorf("%w: %s thresholds must be strictly ascending", ErrInvalidProfile, p.Name)
		}
		if th.Tier == "" || th.Urgency == "" {
			return fmt.Errorf("%w: %s threshold %d has empty tier", ErrInvalidProfile, p.Name, i)
		}
		prev = th.MaxDays
	}
	return nil
}

// Classify は基準日から対象日までの日数を求め、profile に従って区分します。
// 比較は日付単位で行い、時刻は無視します。
func Classify(reference, target time.Time, profile Profile) Classification {
	diff := DaysBetween(reference, target)

	switch {
	case diff < 0:
		return Classification{Tier: profile.Expired.Tier, Urgency: profile.Expired.Urgency, Days: -diff, DiffDays: diff}
	case diff == 0:
		return Classification{Tier: profile.Today.Tier, Urgency: profile.Today.Urgency, Days: 0, DiffDays: 0}
	}

	for _, th := range profile.Thresholds {
		if diff <= th.MaxDays {
			return Classification{Tier: th.Tier, Urgency: th.Urgency, Days: diff, DiffDays: diff}
		}
	}

	return Classification{Tier: profile.None.Tier, Urgency: profile.None.Urgency, Days: diff, DiffDays: diff}
}

// DaysBetween は from から to までの暦日差を符号付きで返します。
func DaysBetween(from, to time.Time) int {
	return int((Truncate(to).Unix() - Truncate(from).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// Truncate は時刻を落とした UTC の暦日を返します。
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
