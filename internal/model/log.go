package model

import "time"

// Email delivery outcomes recorded on a quote log.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

// QuoteLog represents a saved quote in the quote_logs collection.
type QuoteLog struct {
	QuoteID       string    `json:"quote_id" bson:"quote_id"`
	CustomerEmail string    `json:"customer_email" bson:"customer_email"`
	SalesRepEmail string    `json:"sales_rep_email" bson:"sales_rep_email"`
	TotalAmount   string    `json:"total_amount" bson:"total_amount"`
	ItemCount     int       `json:"item_count" bson:"item_count"`
	FailedItems   int       `json:"failed_items" bson:"failed_items"`
	EmailStatus   string    `json:"email_status" bson:"email_status"` // 'sent', 'failed' or 'skipped'
	ErrorMessage  string    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
