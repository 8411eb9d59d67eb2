package mmsi

import "testing"

func TestFormat(t *testing.T) {
	want := "000000123"
	got := Format(123)
	if want != got {
		t.Fatalf("want %v ; got %v", want, got)
	}
}

func TestValidMID(t *testing.T) {
	if !ValidMID(244) {
		t.Fatalf("244 should be a valid MID")
	}
	if ValidMID(100) {
		t.Fatalf("100 should not be a valid MID")
	}
	if ValidMID(800) {
		t.Fatalf("800 should not be a valid MID")
	}
}

func TestIdentify(t *testing.T) {
	cases := []struct {
		mmsi uint32
		kind Kind
	}{
		{244670123, Ship},
		{2442000, BaseStation},
		{972000001, Mob},
		{974000001, Epirb},
		{970000001, AisSart},
		{111244001, SarAircraft},
		{992441234, AidToNavigation},
		{982441234, CraftAssociatedWithParentShip},
	}
	for _, c := range cases {
		if got := Identify(c.mmsi); got != c.kind {
			t.Errorf("Identify(%d) = %v, want %v", c.mmsi, got, c.kind)
		}
	}
}
