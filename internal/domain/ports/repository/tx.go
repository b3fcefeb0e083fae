package repository

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories accept nil for the non-transactional path.
type Tx interface{}

var NoTX interface{}
