package model

import "testing"

func TestEventID(t *testing.T) {
	res := Resolution{TxHash: "0xabc", LogIndex: 3}
	if got := res.EventID(); got != "0xabc:3" {
		t.Fatalf("unexpected event id: %s", got)
	}
}

func TestLanded(t *testing.T) {
	cases := []struct {
		name   string
		choice Side
		result Outcome
		want   Side
	}{
		{"won heads", SideHeads, OutcomeWon, SideHeads},
		{"won tails", SideTails, OutcomeWon, SideTails},
		{"lost heads", SideHeads, OutcomeLost, SideTails},
		{"lost tails", SideTails, OutcomeLost, SideHeads},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolution{Choice: tc.choice, Result: tc.result}
			if got := res.Landed(); got != tc.want {
				t.Fatalf("landed = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	if side, err := ParseSide("heads"); err != nil || side != SideHeads {
		t.Fatalf("parse heads: %v %s", err, side)
	}
	if _, err := ParseSide("edge"); err == nil {
		t.Fatalf("expected error for invalid side")
	}
}
