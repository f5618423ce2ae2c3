package engine_test

import (
	"testing"

	"github.com/zline/bi-engine/engine"
)

func TestIsNonOperationalCost_ExplicitTypeWins(t *testing.T) {
	cases := []struct {
		name  string
		label string
		typ   engine.CostType
		want  bool
	}{
		{"extra type overrides neutral label", "Studio rent", engine.CostTypeExtra, true},
		{"tax type overrides neutral label", "Studio rent", engine.CostTypeTax, true},
		{"fixed type overrides matching label", "Tax reversal", engine.CostTypeFixed, false},
		{"unspecified falls back to keyword", "Client refund", engine.CostTypeUnspecified, true},
		{"unspecified accountant keyword", "Accountant retainer", engine.CostTypeUnspecified, true},
		{"unspecified neutral label", "Editing software", engine.CostTypeUnspecified, false},
		{"keyword match is case insensitive", "REVERSAL of fee", engine.CostTypeUnspecified, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.IsNonOperationalCost(tc.label, tc.typ)
			if got != tc.want {
				t.Errorf("IsNonOperationalCost(%q, %q) = %v, want %v", tc.label, tc.typ, got, tc.want)
			}
		})
	}
}

func TestIsLaborCost(t *testing.T) {
	cases := []struct {
		label string
		want  bool
	}{
		{"Pro-labore", true},
		{"Senior Editor", true},
		{"Photographer day rate", true},
		{"Social Media retainer", true},
		{"Cloud storage", false},
		{"editor license", true},
	}
	for _, tc := range cases {
		if got := engine.IsLaborCost(tc.label); got != tc.want {
			t.Errorf("IsLaborCost(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}
