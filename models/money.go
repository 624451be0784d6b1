package models

// Money is a monetary amount in cents. All arithmetic stays in integer
// cents; conversion to a display currency happens client-side.
type Money int64
