package domain

// RowLabel returns the seat-row label for a zero-based row index:
// A..Z, then AA, AB, and so on.
func RowLabel(row int) string {
	label := ""
	for n := row; n >= 0; n = n/26 - 1 {
		label = string(rune('A'+n%26)) + label
	}
	return label
}

// SeatTypeFor grades a seat by its position in the row.
func SeatTypeFor(seatNumber int) SeatType {
	switch {
	case seatNumber <= 2:
		return SeatVIP
	case seatNumber <= 6:
		return SeatPremium
	default:
		return SeatRegular
	}
}
