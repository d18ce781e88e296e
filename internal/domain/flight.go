package domain

import "time"

type Flight struct {
	ID            int64
	Number        string
	Origin        string
	Destination   string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Status        string
	DistanceMiles int
	AirplaneType  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FarePrice is one (flight, cabin class) price row. SeatCount is the
// listed availability column and is only trusted for the summary view;
// the seat map is the authoritative count.
type FarePrice struct {
	FlightID  int64
	Class     CabinClass
	Amount    int64
	Currency  string
	SeatCount int
}

// FareBucketQuote is the aggregated price shown per bucket in search
// results. Available is false when no constituent class carries a
// price; Amount must not be read in that case.
type FareBucketQuote struct {
	Bucket    CabinBucket
	Amount    int64
	Currency  string
	SeatCount int
	Available bool
}

// ClassAvailability is the expanded per-class view with the recomputed
// seat count (physical seats minus per-flight occupancy).
type ClassAvailability struct {
	Class     CabinClass
	Amount    int64
	Currency  string
	Available int
	Priced    bool
}

type FlightQuote struct {
	Flight Flight
	Quotes []FareBucketQuote
}

type SearchQuery struct {
	Origin      string
	Destination string
	Date        time.Time
	Bucket      CabinBucket
}
