package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

var ReservationStatuses = []ReservationStatus{
	ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationExpired,
}

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPaypal       PaymentMethod = "paypal"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

var PaymentMethods = []PaymentMethod{
	PaymentCreditCard, PaymentDebitCard, PaymentPaypal, PaymentCash, PaymentBankTransfer,
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reservation references a schedule and movie held in other stores.
// Neither reference is checked.
type Reservation struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	ScheduleID      int64             `json:"schedule_id"`
	MovieID         string            `json:"movie_id"`
	TotalAmount     float64           `json:"total_amount"`
	Status          ReservationStatus `json:"status"`
	ReservationDate time.Time         `json:"reservation_date"`
}

type ReservedSeat struct {
	ID            int64 `json:"id"`
	ReservationID int64 `json:"reservation_id"`
	SeatID        int64 `json:"seat_id"`
}

type Payment struct {
	ID            int64         `json:"id"`
	ReservationID int64         `json:"reservation_id"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TransactionID string        `json:"transaction_id"`
	PaymentDate   time.Time     `json:"payment_date"`
}
