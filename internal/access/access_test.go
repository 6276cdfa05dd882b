package access

import (
	"context"
	"fmt"
	"testing"
)

type failingProfiles struct{}

func (failingProfiles) Tier(context.Context, string) (Tier, error) {
	return "", fmt.Errorf("billing backend down")
}

func TestFeatureMatrix(t *testing.T) {
	tests := []struct {
		tier    Tier
		feature Feature
		want    bool
	}{
		{TierFree, FeatureDiagnostic, true},
		{TierFree, FeatureWorkshop, false},
		{TierFree, FeaturePDFExport, false},
		{TierBasic, FeatureDiagnostic, true},
		{TierBasic, FeatureWorkshop, true},
		{TierBasic, FeaturePDFExport, false},
		{TierPro, FeatureWorkshop, true},
		{TierPro, FeaturePDFExport, true},
		{TierPro, FeatureUnlimitedProjects, true},
		{TierPro, FeaturePrioritySupport, true},
	}
	for _, tc := range tests {
		c := NewController(StaticProfiles{Assigned: tc.tier})
		if got := c.HasFeature(context.Background(), "u1", tc.feature); got != tc.want {
			t.Errorf("HasFeature(%s, %s) = %v, want %v", tc.tier, tc.feature, got, tc.want)
		}
	}
}

func TestUnknownFeatureDenied(t *testing.T) {
	c := NewController(StaticProfiles{Assigned: TierPro})
	if c.HasFeature(context.Background(), "u1", Feature("TELEPORT")) {
		t.Errorf("unknown features must be denied")
	}
}

func TestUserTierDegradesToFree(t *testing.T) {
	// Lookup failure.
	c := NewController(failingProfiles{})
	if got := c.UserTier(context.Background(), "u1"); got != TierFree {
		t.Errorf("failed lookup tier = %s, want free", got)
	}

	// Anonymous user.
	c = NewController(StaticProfiles{Assigned: TierPro})
	if got := c.UserTier(context.Background(), ""); got != TierFree {
		t.Errorf("anonymous tier = %s, want free", got)
	}

	// Nil profile source.
	c = NewController(nil)
	if got := c.UserTier(context.Background(), "u1"); got != TierFree {
		t.Errorf("nil source tier = %s, want free", got)
	}

	// Unrecognized tier value.
	c = NewController(StaticProfiles{Assigned: Tier("platinum")})
	if got := c.UserTier(context.Background(), "u1"); got != TierFree {
		t.Errorf("unknown tier value = %s, want free", got)
	}
}
