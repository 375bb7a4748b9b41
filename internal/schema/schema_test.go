package schema

import "testing"

func TestDefaultSchema(t *testing.T) {
	sch := Default()

	if len(sch.Sections) == 0 || sch.Version == "" {
		t.Fatal("default schema should declare versioned sections")
	}

	if sch.TotalWeight() <= 0 {
		t.Errorf("total weight = %f", sch.TotalWeight())
	}

	required := sch.RequiredSections()
	if len(required) == 0 {
		t.Fatal("default schema should have required sections")
	}
	for _, sec := range required {
		if !sec.Required {
			t.Errorf("section %s returned as required but not flagged", sec.Name)
		}
	}

	// The ads status enum anchors the enrichment contract.
	f, ok := sch.Field("ads", "advertising_status")
	if !ok {
		t.Fatal("ads.advertising_status missing")
	}
	for _, v := range []string{"active_advertiser", "inactive_advertiser", "no_ads_found", "unknown"} {
		if !f.AllowsValue(v) {
			t.Errorf("advertising_status should allow %q", v)
		}
	}
	if f.AllowsValue("sometimes") {
		t.Error("advertising_status enum should reject undeclared values")
	}
}

func TestSectionAndFieldLookup(t *testing.T) {
	sch := Default()

	if _, ok := sch.Section("identity"); !ok {
		t.Error("identity section missing")
	}
	if _, ok := sch.Section("nope"); ok {
		t.Error("undeclared section found")
	}
	if _, ok := sch.Field("identity", "company_name"); !ok {
		t.Error("identity.company_name missing")
	}
	if _, ok := sch.Field("identity", "nope"); ok {
		t.Error("undeclared field found")
	}
}

func TestAllowsKey(t *testing.T) {
	f := Field{Kind: KindObjectList, ItemKeys: []string{"platform", "follower_count"}}
	if !f.AllowsKey("platform") || f.AllowsKey("likes") {
		t.Error("ItemKeys restriction not enforced")
	}

	open := Field{Kind: KindObjectList}
	if !open.AllowsKey("anything") {
		t.Error("fields without declared keys should accept any key")
	}
}
