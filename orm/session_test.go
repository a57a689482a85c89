package orm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/orm"
	"github.com/mickamy/ormtour/scope"
)

type user struct {
	ID        int        `db:"id,primaryKey"`
	Name      string     `db:"name,size:30,notNull"`
	Fullname  *string    `db:"fullname"`
	Addresses []*address `rel:"has_many,foreign_key:user_id,back_populates:User"`
}

func (user) TableName() string { return "user_account" }

type address struct {
	ID           int    `db:"id,primaryKey"`
	EmailAddress string `db:"email_address,notNull"`
	UserID       int    `db:"user_id,notNull,references:user_account.id"`
	User         *user  `rel:"belongs_to,foreign_key:user_id,back_populates:Addresses"`
}

func (address) TableName() string { return "address" }

type recorder struct {
	lines []string
}

func (r *recorder) Log(_ context.Context, query string, _ ...any) {
	r.lines = append(r.lines, query)
}

func ptr[T any](v T) *T { return &v }

// newSeededEngine returns an in-memory engine holding three users, the
// second of which has two addresses.
func newSeededEngine(t *testing.T) (*core.Engine, *orm.Registry) {
	t.Helper()

	engine, err := core.Create("sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Dispose() })

	reg := orm.NewRegistry()
	orm.MustMap[user](reg)
	orm.MustMap[address](reg)
	require.NoError(t, reg.MetaData().CreateAll(t.Context(), engine))

	s := orm.NewSession(engine, orm.WithRegistry(reg))
	spongebob := &user{Name: "spongebob", Fullname: ptr("Spongebob Squarepants"),
		Addresses: []*address{{EmailAddress: "spongebob@sqlalchemy.org"}}}
	sandy := &user{Name: "sandy", Fullname: ptr("Sandy Cheeks"),
		Addresses: []*address{{EmailAddress: "sandy@sqlalchemy.org"}, {EmailAddress: "sandy@squirrelpower.org"}}}
	patrick := &user{Name: "patrick", Fullname: ptr("Patrick Star")}
	require.NoError(t, s.AddAll(spongebob, sandy, patrick))
	require.NoError(t, s.Commit(t.Context()))
	require.NoError(t, s.Close())

	require.Equal(t, []int{1, 2, 3}, []int{spongebob.ID, sandy.ID, patrick.ID})
	require.Equal(t, sandy.ID, sandy.Addresses[1].UserID)
	require.Same(t, sandy, sandy.Addresses[1].User)
	return engine, reg
}

func TestSession_Get(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	sandy, err := orm.Get[user](t.Context(), s, 2)
	require.NoError(t, err)
	assert.Equal(t, "sandy", sandy.Name)
	require.NotNil(t, sandy.Fullname)
	assert.Equal(t, "Sandy Cheeks", *sandy.Fullname)

	again, err := orm.Get[user](t.Context(), s, int64(2))
	require.NoError(t, err)
	assert.Same(t, sandy, again)

	_, err = orm.Get[user](t.Context(), s, 99)
	assert.ErrorIs(t, err, orm.ErrNotFound)
}

func TestSession_SelectIdentity(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	sandy, err := orm.Get[user](t.Context(), s, 2)
	require.NoError(t, err)

	users, err := orm.Select[user](s).OrderBy(`"user_account"."id"`).All(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Same(t, sandy, users[1])
}

func TestSession_PreloadHasMany(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	users, err := orm.Select[user](s).
		Where(`"user_account"."name" IN (?, ?)`, "spongebob", "sandy").
		OrderBy(`"user_account"."id"`).
		Preload("Addresses").
		All(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 2)

	require.Len(t, users[0].Addresses, 1)
	assert.Equal(t, "spongebob@sqlalchemy.org", users[0].Addresses[0].EmailAddress)

	sandy := users[1]
	require.Len(t, sandy.Addresses, 2)
	emails := []string{sandy.Addresses[0].EmailAddress, sandy.Addresses[1].EmailAddress}
	assert.ElementsMatch(t, []string{"sandy@sqlalchemy.org", "sandy@squirrelpower.org"}, emails)
	for _, a := range sandy.Addresses {
		assert.Same(t, sandy, a.User)
	}
}

func TestSession_PreloadBelongsTo(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	addrs, err := orm.Select[address](s).OrderBy(`"address"."id"`).Preload("User").All(t.Context())
	require.NoError(t, err)
	require.Len(t, addrs, 3)

	require.NotNil(t, addrs[0].User)
	assert.Equal(t, "spongebob", addrs[0].User.Name)
	assert.Same(t, addrs[1].User, addrs[2].User)
	assert.Len(t, addrs[1].User.Addresses, 2)
}

func TestSession_Join(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	got, err := orm.Select[user](s).
		Join("Addresses").
		Where(`"address"."email_address" = ?`, "sandy@sqlalchemy.org").
		One(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "sandy", got.Name)

	n, err := orm.Select[user](s).Join("Addresses").Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSession_CountAndExistsWithWindow(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	page := orm.Select[user](s).OrderBy(`"user_account"."id"`).Scopes(scope.Paginate(2, 2)...)
	users, err := page.All(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "patrick", users[0].Name)

	n, err := page.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = orm.Select[user](s).Limit(2).Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := orm.Select[user](s).Offset(1).Exists(t.Context())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orm.Select[user](s).Offset(3).Exists(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = orm.Select[user](s).Limit(0).Exists(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_DirtyAutoflushAndRollback(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))

	sandy, err := orm.Get[user](t.Context(), s, 2)
	require.NoError(t, err)
	sandy.Fullname = ptr("Sandy Squirrel")

	got, err := orm.Select[user](s).Where(`"user_account"."fullname" = ?`, "Sandy Squirrel").First(t.Context())
	require.NoError(t, err)
	assert.Same(t, sandy, got)

	require.NoError(t, s.Rollback())
	assert.False(t, s.Contains(sandy))

	s2 := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s2.Close()
	fresh, err := orm.Get[user](t.Context(), s2, 2)
	require.NoError(t, err)
	assert.NotSame(t, sandy, fresh)
	assert.Equal(t, "Sandy Cheeks", *fresh.Fullname)
}

func TestSession_UpdateCommit(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	sandy, err := orm.Get[user](t.Context(), s, 2)
	require.NoError(t, err)
	sandy.Fullname = ptr("Sandy Squirrel")
	require.NoError(t, s.Commit(t.Context()))
	require.NoError(t, s.Close())

	s2 := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s2.Close()
	fresh, err := orm.Get[user](t.Context(), s2, 2)
	require.NoError(t, err)
	assert.Equal(t, "Sandy Squirrel", *fresh.Fullname)
}

func TestSession_DeleteCommit(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	patrick, err := orm.Get[user](t.Context(), s, 3)
	require.NoError(t, err)
	require.NoError(t, s.Delete(patrick))
	require.NoError(t, s.Commit(t.Context()))
	require.NoError(t, s.Close())

	s2 := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s2.Close()
	n, err := orm.Select[user](s2).Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = orm.Get[user](t.Context(), s2, 3)
	assert.ErrorIs(t, err, orm.ErrNotFound)
}

func TestSession_AddToExistingParent(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	patrick, err := orm.Get[user](t.Context(), s, 3)
	require.NoError(t, err)
	patrick.Addresses = append(patrick.Addresses, &address{EmailAddress: "patrickstar@sqlalchemy.org"})
	require.NoError(t, s.Commit(t.Context()))
	require.NoError(t, s.Close())

	s2 := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s2.Close()
	addrs, err := orm.Select[address](s2).Where(`"address"."user_id" = ?`, 3).All(t.Context())
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "patrickstar@sqlalchemy.org", addrs[0].EmailAddress)
}

func TestSession_CommitFailureRollsBack(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	require.NoError(t, s.Add(&user{Name: "squidward"}))
	require.NoError(t, s.Add(&user{ID: 1, Name: "duplicate"}))

	err := s.Commit(t.Context())
	var stmtErr *core.StatementError
	require.ErrorAs(t, err, &stmtErr)
	require.NoError(t, s.Close())

	s2 := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s2.Close()
	n, err := orm.Select[user](s2).Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSession_FlushWithoutChangesEmitsNothing(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	rec := &recorder{}
	s := orm.NewSession(engine.Debug(rec), orm.WithRegistry(reg))
	defer s.Close()

	_, err := orm.Get[user](t.Context(), s, 1)
	require.NoError(t, err)
	before := len(rec.lines)

	require.NoError(t, s.Flush(t.Context()))
	assert.Len(t, rec.lines, before)

	require.NoError(t, s.Commit(t.Context()))
	assert.Equal(t, "COMMIT", rec.lines[len(rec.lines)-1])
	assert.Len(t, rec.lines, before+1)
}

func TestSession_Execute(t *testing.T) {
	t.Parallel()

	engine, reg := newSeededEngine(t)
	s := orm.NewSession(engine, orm.WithRegistry(reg))
	defer s.Close()

	res, err := s.Execute(t.Context(),
		core.Text("SELECT name FROM user_account WHERE name = :name"),
		core.Params{"name": "spongebob"},
	)
	require.NoError(t, err)
	assert.Equal(t, "spongebob", res.Scalar())

	// Execute and Select share the session's transaction.
	_, err = s.Execute(t.Context(),
		core.Text("UPDATE user_account SET fullname = :f WHERE name = :name"),
		core.Params{"f": "Bob", "name": "spongebob"},
	)
	require.NoError(t, err)
	bob, err := orm.Get[user](t.Context(), s, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bob", *bob.Fullname)
}

func TestSession_ExecuteWithoutRegistry(t *testing.T) {
	t.Parallel()

	engine, _ := newSeededEngine(t)
	s := orm.NewSession(engine)
	defer s.Close()

	res, err := s.Execute(t.Context(), core.Text("SELECT count(*) FROM address"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Scalar())

	err = s.Add(&user{Name: "gary"})
	assert.True(t, errors.Is(err, orm.ErrUnmapped))
}
