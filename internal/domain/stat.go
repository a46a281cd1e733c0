package domain

// Stat is a counter with no known upper bound. It is signed because the live
// service reports negative values for some players after administrative
// corrections (for example -1 shoes or crowns).
type Stat int64

// Percent is a value bounded to 0..100.
type Percent uint8

// DateString is a date passed through to the API untouched. The service
// parses it with Javascript's `new Date()`.
type DateString = string

// Identifier is an opaque id issued by the service: a user id (also called a
// Rumpus lookup code), a level id or a tiebreaker item id.
type Identifier = string
