package service

import (
	"testing"

	"github.com/adjudicus/diplomacy-engine/pkg/engine"
)

func TestParseUnitType(t *testing.T) {
	tests := []struct {
		input string
		want  engine.UnitType
	}{
		{"army", engine.Army},
		{"fleet", engine.Fleet},
		{"", engine.Army},
		{"invalid", engine.Army},
	}
	for _, tt := range tests {
		got := parseUnitType(tt.input)
		if got != tt.want {
			t.Errorf("parseUnitType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		input string
		want  engine.OrderType
	}{
		{"hold", engine.OrderHold},
		{"move", engine.OrderMove},
		{"support", engine.OrderSupport},
		{"convoy", engine.OrderConvoy},
		{"", engine.OrderHold},
		{"invalid", engine.OrderHold},
	}
	for _, tt := range tests {
		got := parseOrderType(tt.input)
		if got != tt.want {
			t.Errorf("parseOrderType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToEngineOrder(t *testing.T) {
	input := OrderInput{
		UnitType:    "fleet",
		Location:    "nth",
		OrderType:   "convoy",
		Target:      "nwy",
		AuxLoc:      "lon",
		AuxTarget:   "nwy",
		AuxUnitType: "army",
	}
	order := toEngineOrder(input, engine.England)
	if order.UnitType != engine.Fleet {
		t.Errorf("expected Fleet, got %v", order.UnitType)
	}
	if order.Power != engine.England {
		t.Errorf("expected England, got %v", order.Power)
	}
	if order.Location != "nth" {
		t.Errorf("expected nth, got %s", order.Location)
	}
	if order.Type != engine.OrderConvoy {
		t.Errorf("expected Convoy, got %v", order.Type)
	}
	if order.Target != "nwy" {
		t.Errorf("expected nwy, got %s", order.Target)
	}
	if order.AuxUnitType != engine.Army {
		t.Errorf("expected Army for aux, got %v", order.AuxUnitType)
	}
}

func TestToEngineOrderWithCoast(t *testing.T) {
	input := OrderInput{
		UnitType:    "fleet",
		Location:    "stp",
		Coast:       "nc",
		OrderType:   "move",
		Target:      "bar",
		TargetCoast: "",
	}
	order := toEngineOrder(input, engine.Russia)
	if order.Coast != engine.Coast("nc") {
		t.Errorf("expected coast nc, got %v", order.Coast)
	}
}
