package testdata

type Coord [2]float64

// Place tags a field whose type has no column mapping.
type Place struct {
	ID  int   `db:"id,primaryKey"`
	Loc Coord `db:"loc"`
}
