package application

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"planned", StatusPlanned, false},
		{"PLANNED", StatusPlanned, false},
		{"Planned", StatusPlanned, false},
		{"completed", StatusCompleted, false},
		{"done", StatusCompleted, false},
		{"DONE", StatusCompleted, false},
		{"cancelled", StatusCancelled, false},
		{"canceled", StatusCancelled, false},
		{"CANCELED", StatusCancelled, false},
		{"  planned  ", StatusPlanned, false},
		{"", "", true},
		{"finished", "", true},
		{"in_progress", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeStatus(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeStatus(%q) expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeStatus(%q) returned error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if StatusPlanned.IsTerminal() {
		t.Error("planned must not be terminal")
	}
	if !StatusCompleted.IsTerminal() {
		t.Error("completed must be terminal")
	}
	if !StatusCancelled.IsTerminal() {
		t.Error("cancelled must be terminal")
	}
}
