package models

import "testing"

func TestReservationDisplayName(t *testing.T) {
	name := "Bob"

	cases := []struct {
		res  Reservation
		want string
	}{
		{Reservation{ReservedByName: &name}, "Bob"},
		{Reservation{ReservedByName: &name, IsAnonymous: true}, "Anonymous"},
		{Reservation{}, "Anonymous"},
	}
	for _, c := range cases {
		if got := c.res.DisplayName(); got != c.want {
			t.Errorf("DisplayName() = %q, want %q", got, c.want)
		}
	}
}

func TestItemAvailableQuantityClamps(t *testing.T) {
	item := GiftItem{Quantity: 2, ReservedQuantity: 3}
	if got := item.AvailableQuantity(); got != 0 {
		t.Errorf("AvailableQuantity() = %d, want 0", got)
	}

	item = GiftItem{Quantity: 3, ReservedQuantity: 1}
	if got := item.AvailableQuantity(); got != 2 {
		t.Errorf("AvailableQuantity() = %d, want 2", got)
	}
}
