package memoryregistry

import (
	"context"
	"sort"
	"testing"

	"github.com/wirechat/amp-go/disco"
	"github.com/wirechat/amp-go/disco/discotest"
)

func TestMemoryRegistry(t *testing.T) {
	discotest.RunRegistryTests(t, func(t *testing.T) disco.FeatureRegistry {
		return New()
	})
}

func TestFeaturesSnapshot(t *testing.T) {
	ctx := context.Background()
	reg := New()

	for _, v := range []string{"urn:a", "urn:b"} {
		if err := reg.AddFeature(ctx, "s1", v); err != nil {
			t.Fatalf("AddFeature: %v", err)
		}
	}

	got, err := reg.Features(ctx, "s1")
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "urn:a" || got[1] != "urn:b" {
		t.Fatalf("Features = %v", got)
	}

	empty, err := reg.Features(ctx, "s2")
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("unknown session should have no features, got %v", empty)
	}
}
