package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		name         string
		tier         Tier
		wantQuota    int
		wantFeatures []Feature
	}{
		{
			name:         "guest has small quota and analysis only",
			tier:         TierGuest,
			wantQuota:    5,
			wantFeatures: []Feature{FeatureResumeAnalysis},
		},
		{
			name:      "pro has larger quota and matching features",
			tier:      TierPro,
			wantQuota: 100,
			wantFeatures: []Feature{
				FeatureResumeAnalysis,
				FeatureJDMatching,
				FeatureDetailedReport,
			},
		},
		{
			name:      "recruiter is unlimited with batch analyze",
			tier:      TierRecruiter,
			wantQuota: QuotaUnlimited,
			wantFeatures: []Feature{
				FeatureResumeAnalysis,
				FeatureJDMatching,
				FeatureDetailedReport,
				FeatureBatchAnalyze,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := PolicyFor(tt.tier)
			assert.Equal(t, tt.wantQuota, policy.MonthlyQuota)
			assert.Equal(t, tt.wantFeatures, policy.Features)
		})
	}
}

func TestPolicyForUnknownTierPanics(t *testing.T) {
	assert.Panics(t, func() {
		PolicyFor(Tier("platinum"))
	})
}

func TestPolicyFeatureSetsAreSupersets(t *testing.T) {
	// Each tier must include everything the tier below it offers.
	guest := PolicyFor(TierGuest)
	pro := PolicyFor(TierPro)
	recruiter := PolicyFor(TierRecruiter)

	for _, f := range guest.Features {
		assert.True(t, pro.HasFeature(f), "pro missing guest feature %s", f)
	}
	for _, f := range pro.Features {
		assert.True(t, recruiter.HasFeature(f), "recruiter missing pro feature %s", f)
	}
}

func TestTierPolicyUnlimited(t *testing.T) {
	assert.False(t, PolicyFor(TierGuest).Unlimited())
	assert.False(t, PolicyFor(TierPro).Unlimited())
	assert.True(t, PolicyFor(TierRecruiter).Unlimited())
}

func TestTierMeets(t *testing.T) {
	tests := []struct {
		name     string
		tier     Tier
		required Tier
		want     bool
	}{
		{"guest meets guest", TierGuest, TierGuest, true},
		{"guest does not meet pro", TierGuest, TierPro, false},
		{"guest does not meet recruiter", TierGuest, TierRecruiter, false},
		{"pro meets guest", TierPro, TierGuest, true},
		{"pro meets pro", TierPro, TierPro, true},
		{"pro does not meet recruiter", TierPro, TierRecruiter, false},
		{"recruiter meets everything", TierRecruiter, TierRecruiter, true},
		{"recruiter meets pro", TierRecruiter, TierPro, true},
		{"unknown tier fails closed", Tier("platinum"), TierGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tier.Meets(tt.required))
		})
	}
}

func TestTierIsValid(t *testing.T) {
	assert.True(t, TierGuest.IsValid())
	assert.True(t, TierPro.IsValid())
	assert.True(t, TierRecruiter.IsValid())
	assert.False(t, Tier("").IsValid())
	assert.False(t, Tier("admin").IsValid())
}

func TestTierIsPaid(t *testing.T) {
	assert.False(t, TierGuest.IsPaid())
	assert.True(t, TierPro.IsPaid())
	assert.True(t, TierRecruiter.IsPaid())
	assert.False(t, Tier("platinum").IsPaid())
}

func TestPlanAmount(t *testing.T) {
	amount, err := PlanAmount(TierPro)
	require.NoError(t, err)
	assert.Equal(t, 350, amount)

	amount, err = PlanAmount(TierRecruiter)
	require.NoError(t, err)
	assert.Equal(t, 500, amount)

	_, err = PlanAmount(TierGuest)
	require.Error(t, err)
	assert.Equal(t, EINVALID, ErrorCode(err))
}
