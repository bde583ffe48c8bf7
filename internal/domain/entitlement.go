// Package domain contains core business types and interfaces.
//
// This file defines the resolved entitlement view and the usage ledger
// result types.
package domain

// Entitlement is the resolved {tier, quota, features} for a user at a point
// in time, together with the usage already consumed in the current billing
// month. Used is reported as zero when the stored counter predates the
// current month, so callers never see a stale pre-rollover value.
type Entitlement struct {
	Tier         Tier
	MonthlyQuota int // QuotaUnlimited for uncapped tiers
	Features     []Feature
	Used         int
	Remaining    int // QuotaUnlimited for uncapped tiers
}

// ConsumeResult is the outcome of attempting to consume one unit of usage.
// An exhausted quota is an expected outcome, not an error: Allowed is false
// and nothing was mutated.
type ConsumeResult struct {
	Allowed   bool
	Remaining int // QuotaUnlimited for uncapped tiers
}
