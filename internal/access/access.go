// Package access gates product features by subscription tier. Tier lookups
// degrade to the free tier on any failure so a billing outage never locks
// users out of the diagnostic funnel.
package access

import (
	"context"
	"log/slog"
)

// Tier is a subscription level.
type Tier string

const (
	TierFree  Tier = "free"
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
)

// Feature names a gated product capability.
type Feature string

const (
	FeatureDiagnostic        Feature = "DIAGNOSTIC"
	FeatureWorkshop          Feature = "WORKSHOP"
	FeaturePDFExport         Feature = "PDF_EXPORT"
	FeatureUnlimitedProjects Feature = "UNLIMITED_PROJECTS"
	FeaturePrioritySupport   Feature = "PRIORITY_SUPPORT"
)

// featureMatrix lists which tiers may use which feature. Unknown features
// are denied for every tier.
var featureMatrix = map[Feature]map[Tier]bool{
	FeatureDiagnostic:        {TierFree: true, TierBasic: true, TierPro: true},
	FeatureWorkshop:          {TierBasic: true, TierPro: true},
	FeaturePDFExport:         {TierPro: true},
	FeatureUnlimitedProjects: {TierPro: true},
	FeaturePrioritySupport:   {TierPro: true},
}

// ProfileSource resolves a user's subscription tier. Implementations may
// consult a billing database or an external provider.
type ProfileSource interface {
	Tier(ctx context.Context, userID string) (Tier, error)
}

// StaticProfiles is a ProfileSource returning the same tier for everyone.
// Useful for single-tenant deployments and tests.
type StaticProfiles struct {
	Assigned Tier
}

func (s StaticProfiles) Tier(_ context.Context, _ string) (Tier, error) {
	return s.Assigned, nil
}

// Controller answers feature access questions for request handlers.
type Controller struct {
	profiles ProfileSource
}

// NewController creates a Controller over the given profile source. A nil
// source means every user resolves to the free tier.
func NewController(profiles ProfileSource) *Controller {
	return &Controller{profiles: profiles}
}

// UserTier resolves the caller's tier. Anonymous users and lookup failures
// resolve to free.
func (c *Controller) UserTier(ctx context.Context, userID string) Tier {
	if c.profiles == nil || userID == "" {
		return TierFree
	}
	tier, err := c.profiles.Tier(ctx, userID)
	if err != nil {
		slog.Warn("Controller.UserTier: profile lookup failed, defaulting to free", "user_id", userID, "error", err)
		return TierFree
	}
	switch tier {
	case TierFree, TierBasic, TierPro:
		return tier
	default:
		return TierFree
	}
}

// HasFeature reports whether the caller's tier includes the feature.
func (c *Controller) HasFeature(ctx context.Context, userID string, feature Feature) bool {
	tiers, ok := featureMatrix[feature]
	if !ok {
		slog.Warn("Controller.HasFeature: unknown feature", "feature", string(feature))
		return false
	}
	return tiers[c.UserTier(ctx, userID)]
}
