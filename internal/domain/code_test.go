package domain

import (
	"testing"
	"time"
)

func TestTableNames(t *testing.T) {
	if (Code{}).TableName() != "codes" {
		t.Fatalf("Code.TableName() = %q; want %q", (Code{}).TableName(), "codes")
	}
	if (SessionRecord{}).TableName() != "sessions" {
		t.Fatalf("SessionRecord.TableName() = %q; want %q", (SessionRecord{}).TableName(), "sessions")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q; want %q", (Idempotency{}).TableName(), "idempotency")
	}
}

func TestCode_Migration_IndexesAndStatusCheck(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Code{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Code{}, "idx_codes_code_status") {
		t.Fatalf("expected index idx_codes_code_status on codes")
	}

	ok := &Code{Code: "ABC123", CodeID: "ext-1", Status: CodeStatusActive}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("insert active code: %v", err)
	}
	if ok.Claimed() {
		t.Fatalf("active code must not report Claimed()")
	}
	if ok.CreatedAt != nil {
		t.Fatalf("claim timestamp must stay nil on insert, got %v", ok.CreatedAt)
	}

	bad := &Code{Code: "XYZ", CodeID: "ext-2", Status: "pending"}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for status=pending")
	}

	dup := &Code{Code: "OTHER", CodeID: "ext-1", Status: CodeStatusActive}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation for duplicate code_id")
	}
}

func TestCode_Claimed(t *testing.T) {
	now := time.Now()
	c := Code{Status: CodeStatusInactive, CreatedAt: &now}
	if !c.Claimed() {
		t.Fatalf("inactive code must report Claimed()")
	}
}

func TestParseStep(t *testing.T) {
	cases := map[string]struct {
		want Step
		ok   bool
	}{
		"ASK_NAME":  {StepAskName, true},
		"ASK_EMAIL": {StepAskEmail, true},
		"ASK_CITY":  {StepAskCity, true},
		"ASK_CODE":  {StepAskCode, true},
		"":          {StepNone, false},
		"ask_name":  {StepNone, false},
		"DONE":      {StepNone, false},
	}
	for in, tc := range cases {
		got, ok := ParseStep(in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseStep(%q) = (%q,%v); want (%q,%v)", in, got, ok, tc.want, tc.ok)
		}
	}
}
