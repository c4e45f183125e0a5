package model

// Seat is one entry of the seeded seat catalog.  The catalog itself is
// static during a sale; the allocator only checks existence before
// accepting a hold.
//
// Fields:
//
//	ID         – primary key identifier.
//	Floor      – floor the seat is on.
//	Section    – single-letter section label.
//	PriceCents – price in cents.
type Seat struct {
	ID         uint64 // seats.id
	Floor      uint32 // seats.floor
	Section    string // seats.section
	PriceCents uint32 // seats.price_cents
}
