// Package domain contains core business types and interfaces.
//
// This file defines subscription tiers and the tier policy: the pure mapping
// from a tier to its monthly analysis quota and feature set. All quota and
// feature decisions in the application flow through PolicyFor and Tier.Meets
// so that tier semantics live in exactly one place.
package domain

import "fmt"

// Tier represents a user's subscription level.
type Tier string

const (
	TierGuest     Tier = "guest"
	TierPro       Tier = "pro"
	TierRecruiter Tier = "recruiter"
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is a recognized value.
func (t Tier) IsValid() bool {
	switch t {
	case TierGuest, TierPro, TierRecruiter:
		return true
	}
	return false
}

// IsPaid returns true for tiers that can be purchased.
// Guest is the default tier and is never the subject of a subscription request.
func (t Tier) IsPaid() bool {
	return t == TierPro || t == TierRecruiter
}

// rank returns the capability rank of a tier. Higher rank satisfies any
// requirement of a lower rank. Unknown tiers rank below guest so that
// capability checks fail closed.
func (t Tier) rank() int {
	switch t {
	case TierGuest:
		return 0
	case TierPro:
		return 1
	case TierRecruiter:
		return 2
	}
	return -1
}

// Meets reports whether this tier satisfies the given required tier.
// Capability is a strict superset ordering: recruiter ⊇ pro ⊇ guest.
func (t Tier) Meets(required Tier) bool {
	return t.rank() >= 0 && t.rank() >= required.rank()
}

// Feature identifies a gated product capability.
type Feature string

const (
	FeatureResumeAnalysis Feature = "resume_analysis"
	FeatureJDMatching     Feature = "jd_matching"
	FeatureDetailedReport Feature = "detailed_report"
	FeatureBatchAnalyze   Feature = "batch_analyze"
)

// QuotaUnlimited is the sentinel quota value for tiers without a monthly cap.
const QuotaUnlimited = -1

// TierPolicy describes what a tier entitles a user to.
type TierPolicy struct {
	// MonthlyQuota is the number of resume analyses allowed per calendar
	// month, or QuotaUnlimited.
	MonthlyQuota int

	// Features is the set of capabilities available to the tier.
	Features []Feature
}

// Unlimited returns true if the policy has no monthly analysis cap.
func (p TierPolicy) Unlimited() bool {
	return p.MonthlyQuota == QuotaUnlimited
}

// HasFeature returns true if the policy includes the given feature.
func (p TierPolicy) HasFeature(f Feature) bool {
	for _, have := range p.Features {
		if have == f {
			return true
		}
	}
	return false
}

// PolicyFor resolves a tier to its policy. It is a total function over the
// valid tiers; an unknown tier is a programming error and panics rather than
// silently degrading to a default.
func PolicyFor(t Tier) TierPolicy {
	switch t {
	case TierGuest:
		return TierPolicy{
			MonthlyQuota: 5,
			Features:     []Feature{FeatureResumeAnalysis},
		}
	case TierPro:
		return TierPolicy{
			MonthlyQuota: 100,
			Features: []Feature{
				FeatureResumeAnalysis,
				FeatureJDMatching,
				FeatureDetailedReport,
			},
		}
	case TierRecruiter:
		return TierPolicy{
			MonthlyQuota: QuotaUnlimited,
			Features: []Feature{
				FeatureResumeAnalysis,
				FeatureJDMatching,
				FeatureDetailedReport,
				FeatureBatchAnalyze,
			},
		}
	}
	panic(fmt.Sprintf("domain: no policy defined for tier %q", t))
}

// PlanAmount returns the current price for a purchasable tier. The amount is
// snapshotted onto the subscription request at creation time, so later price
// changes never alter existing requests.
func PlanAmount(t Tier) (int, error) {
	switch t {
	case TierPro:
		return 350, nil
	case TierRecruiter:
		return 500, nil
	}
	return 0, Invalid("tier.plan_amount", fmt.Sprintf("tier %q cannot be purchased", t))
}
