package testdata

type Note struct {
	Body   string `db:"body"`
	Author string
}
