package testdata

type Team struct {
	ID      int
	Members []*Member `rel:"has_many,foreign_key:team_id"`
}

type Member struct {
	ID   int
	Name string
}
