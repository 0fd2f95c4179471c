package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"young": 12, "well_dressed": 0}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["young"] != float64(12) {
		t.Fatalf("expected young 12, got %v", decoded["young"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if scanned["well_dressed"] != float64(0) {
		t.Fatalf("expected scanned well_dressed 0, got %v", scanned["well_dressed"])
	}
}

func TestJSONBScanRejectsNonBytes(t *testing.T) {
	var scanned JSONB
	if err := scanned.Scan("not bytes"); err == nil {
		t.Fatal("expected error scanning string value")
	}
}

func TestRunStatusTerminal(t *testing.T) {
	for _, status := range []RunStatus{RunCompleted, RunFailed, RunAborted} {
		if !status.Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []RunStatus{RunInitializing, RunRunning} {
		if status.Terminal() {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}

func TestVerdictLabel(t *testing.T) {
	if got := Accept(ReasonStandardHelp).Label(); got != "accept" {
		t.Fatalf("expected accept label, got %q", got)
	}
	if got := Reject(ReasonNoHelp).Label(); got != "reject" {
		t.Fatalf("expected reject label, got %q", got)
	}
}

func TestCandidateHasMissingKey(t *testing.T) {
	c := &Candidate{Index: 3, Attributes: map[string]bool{"young": true}}
	if !c.Has("young") {
		t.Fatal("expected young to be set")
	}
	if c.Has("berlin_local") {
		t.Fatal("missing attribute must read as false")
	}
	var nilCandidate *Candidate
	if nilCandidate.Has("young") {
		t.Fatal("nil candidate carries nothing")
	}
}
