package models

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Deliveries reports the outcome of each contact form email.
type Deliveries struct {
	Internal DeliveryStatus `json:"internal"`
	Client   DeliveryStatus `json:"client"`
}

type ContactResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Deliveries *Deliveries `json:"deliveries,omitempty"`
}

type ContactErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type WaitingListData struct {
	ID string `json:"id"`
}

type WaitingListResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Data      *WaitingListData `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}
