package types

import "time"

const (
	CurrentReportVersion = 1

	// UserIDLocal is used when authentication is bypassed.
	UserIDLocal = "local"
)

// User represents a user of the system.
type User struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Created time.Time `json:"created"`
}

// Price is the cost of grid electricity used to value savings.
type Price struct {
	Provider  string    `json:"provider"`
	PerKWH    float64   `json:"perKwh"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Report is a saved analysis: the statistics of an uploaded file and the
// sizing computed from them.
type Report struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userID"`
	Created       time.Time          `json:"created"`
	FileName      string             `json:"fileName"`
	Configuration SavedConfiguration `json:"configuration"`
	Stats         ConsumptionStats   `json:"stats"`
	Sizing        SizingResult       `json:"sizing"`
	Validation    Validation         `json:"validation"`
}
