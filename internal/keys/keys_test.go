package keys

import (
	"strings"
	"testing"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"", false},
		{"orgs/o1", false},
		{"orgs/o1/teams/t1", false},
		{"orgs", true},
		{"orgs/o1/teams", true},
		{"orgs//teams/t1", true},
		{"/o1", true},
	}

	for _, tt := range tests {
		err := ValidatePrefix(tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
	}
}

func TestCollectionPath(t *testing.T) {
	tests := []struct {
		prefix   string
		name     string
		expected string
	}{
		{"", "customers", "customers"},
		{"orgs/o1", "customers", "orgs/o1/customers"},
		{"orgs/o1/teams/t1", "members", "orgs/o1/teams/t1/members"},
	}

	for _, tt := range tests {
		result, err := CollectionPath(tt.prefix, tt.name)
		if err != nil {
			t.Fatalf("CollectionPath(%q, %q) unexpected error: %v", tt.prefix, tt.name, err)
		}
		if result != tt.expected {
			t.Errorf("CollectionPath(%q, %q) = %q, want %q", tt.prefix, tt.name, result, tt.expected)
		}
	}
}

func TestCollectionPath_Invalid(t *testing.T) {
	if _, err := CollectionPath("", ""); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := CollectionPath("", "a/b"); err == nil {
		t.Error("expected error for multi-segment name")
	}
	if _, err := CollectionPath("orgs", "customers"); err == nil {
		t.Error("expected error for odd prefix")
	}
}

func TestArchivePath(t *testing.T) {
	if got := ArchivePath("orgs/o1/customers", "_archive"); got != "orgs/o1/customers_archive" {
		t.Errorf("unexpected archive path %q", got)
	}
}

func TestGroupName(t *testing.T) {
	tests := map[string]string{
		"customers":                 "customers",
		"orgs/o1/customers":         "customers",
		"orgs/o1/customers_archive": "customers_archive",
	}
	for path, expected := range tests {
		if got := GroupName(path); got != expected {
			t.Errorf("GroupName(%q) = %q, want %q", path, got, expected)
		}
	}
}

func TestValidateDocID(t *testing.T) {
	if err := ValidateDocID("abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateDocID(""); err == nil {
		t.Error("expected error for empty id")
	}
	err := ValidateDocID("a/b")
	if err == nil || !strings.Contains(err.Error(), "must not contain") {
		t.Errorf("expected separator error, got %v", err)
	}
}
