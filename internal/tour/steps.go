package tour

import (
	"context"
	"fmt"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/orm"
	"github.com/mickamy/ormtour/schema"
)

func hello(ctx context.Context, env *Env) error {
	conn, err := env.Engine.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.Execute(ctx, core.Text("select 'hello world'"))
	if err != nil {
		return err
	}
	env.printf("%s\n", result)
	return nil
}

// commitAsYouGo creates some_table and inserts two rows on one
// connection, committing explicitly.
func commitAsYouGo(ctx context.Context, env *Env) error {
	conn, err := env.Engine.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Execute(ctx, core.Text("CREATE TABLE some_table (x int, y int)")); err != nil {
		return err
	}
	if _, err := conn.Execute(ctx,
		core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
		core.Params{"x": 1, "y": 1}, core.Params{"x": 2, "y": 4},
	); err != nil {
		return err
	}
	return conn.Commit()
}

// beginOnce inserts two rows in a block that commits when it returns nil.
func beginOnce(ctx context.Context, env *Env) error {
	return env.Engine.Begin(ctx, func(conn *core.Connection) error {
		_, err := conn.Execute(ctx,
			core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
			core.Params{"x": 6, "y": 8}, core.Params{"x": 9, "y": 10},
		)
		return err
	})
}

func fetchRows(ctx context.Context, env *Env) error {
	return env.query(ctx, func(conn *core.Connection) error {
		result, err := conn.Execute(ctx, core.Text("SELECT x, y FROM some_table"))
		if err != nil {
			return err
		}
		for row := range result.Rows() {
			env.printf("x: %v y: %v\n", row.Get("x"), row.Get("y"))
		}
		return nil
	})
}

// rowAccess reads the same rows four ways: unpacked like a tuple, by
// integer index, by column name, and as a mapping. Only the tuple and
// name passes print.
func rowAccess(ctx context.Context, env *Env) error {
	return env.query(ctx, func(conn *core.Connection) error {
		stmt := core.Text("select x, y from some_table")

		result, err := conn.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		for row := range result.Rows() {
			var x, y int
			if err := row.Scan(&x, &y); err != nil {
				return err
			}
			env.printf("%d\n", x)
		}

		result, err = conn.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		var xs []any
		for row := range result.Rows() {
			xs = append(xs, row.Index(0))
		}

		result, err = conn.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		for row := range result.Rows() {
			y := row.Get("y")
			env.printf("Row: %v %v\n", row.Get("x"), y)
		}

		result, err = conn.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		for i, m := range result.Mappings() {
			if i >= len(xs) || m["x"] != xs[i] {
				return fmt.Errorf("row %d: mapping and index access disagree", i)
			}
		}
		return nil
	})
}

func sendParams(ctx context.Context, env *Env) error {
	return env.query(ctx, func(conn *core.Connection) error {
		result, err := conn.Execute(ctx,
			core.Text("SELECT x, y FROM some_table WHERE y > :y"),
			core.Params{"y": 2},
		)
		if err != nil {
			return err
		}
		for row := range result.Rows() {
			env.printf("x: %v y:%v\n", row.Get("x"), row.Get("y"))
		}
		return nil
	})
}

func sendMultipleParams(ctx context.Context, env *Env) error {
	conn, err := env.Engine.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Execute(ctx,
		core.Text("INSERT INTO some_table (x,y) VALUES (:x, :y)"),
		core.Params{"x": 11, "y": 12}, core.Params{"x": 13, "y": 14},
	); err != nil {
		return err
	}
	return conn.Commit()
}

func bindParams(ctx context.Context, env *Env) error {
	stmt := core.Text("SELECT x, y FROM some_table WHERE y> :y ORDER by x, y").
		BindParams(core.Params{"y": 6})

	return env.query(ctx, func(conn *core.Connection) error {
		result, err := conn.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		for row := range result.Rows() {
			env.printf("x: %v y: %v\n", row.Get("x"), row.Get("y"))
		}
		return nil
	})
}

func sessionExecute(ctx context.Context, env *Env) error {
	stmt := core.Text("SELECT x, y FROM some_table WHERE y > :y ORDER BY x, y").
		BindParams(core.Params{"y": 6})

	session := orm.NewSession(env.Engine)
	defer session.Close()

	result, err := session.Execute(ctx, stmt)
	if err != nil {
		return err
	}
	for row := range result.Rows() {
		env.printf("x: %v y:%v\n", row.Get("x"), row.Get("y"))
	}
	return nil
}

func sessionCommit(ctx context.Context, env *Env) error {
	session := orm.NewSession(env.Engine)
	defer session.Close()

	if _, err := session.Execute(ctx,
		core.Text("UPDATE some_table SET y=:y WHERE x=:x"),
		core.Params{"x": 9, "y": 11}, core.Params{"x": 13, "y": 15},
	); err != nil {
		return err
	}
	return session.Commit(ctx)
}

// metadata declares user_account and address as Table objects and emits
// their DDL.
func metadata(ctx context.Context, env *Env) error {
	md := schema.NewMetaData()

	schema.NewTable("user_account", md,
		schema.Col("id", schema.Integer, schema.PrimaryKey()),
		schema.Col("name", schema.String(30)),
		schema.Col("fullname", schema.String(0)),
	)
	schema.NewTable("address", md,
		schema.Col("id", schema.Integer, schema.PrimaryKey()),
		schema.Col("user_id", schema.Integer, schema.References("user_account.id"), schema.NotNull()),
		schema.Col("email_address", schema.String(0), schema.NotNull()),
	)

	if err := md.CreateAll(ctx, env.Engine); err != nil {
		return fmt.Errorf("create_all: %w", err)
	}
	env.MetaData = md
	return nil
}

// declarative maps User and Address, persists three users through a
// session and reads them back with their addresses.
func declarative(ctx context.Context, env *Env) error {
	reg, err := NewRegistry()
	if err != nil {
		return err
	}
	if err := reg.MetaData().CreateAll(ctx, env.Engine, schema.CheckFirst()); err != nil {
		return fmt.Errorf("create_all: %w", err)
	}
	env.Registry = reg

	session := orm.NewSession(env.Engine, orm.WithRegistry(reg))
	if err := session.AddAll(
		&User{
			Name:      "spongebob",
			Fullname:  ptr("Spongebob Squarepants"),
			Addresses: []*Address{{EmailAddress: "spongebob@sqlalchemy.org"}},
		},
		&User{
			Name:     "sandy",
			Fullname: ptr("Sandy Cheeks"),
			Addresses: []*Address{
				{EmailAddress: "sandy@sqlalchemy.org"},
				{EmailAddress: "sandy@squirrelpower.org"},
			},
		},
		&User{Name: "patrick", Fullname: ptr("Patrick Star")},
	); err != nil {
		_ = session.Close()
		return err
	}
	if err := session.Commit(ctx); err != nil {
		_ = session.Close()
		return err
	}
	if err := session.Close(); err != nil {
		return err
	}

	session = orm.NewSession(env.Engine, orm.WithRegistry(reg))
	defer session.Close()

	users, err := orm.Select[User](session).OrderBy("id").Preload("Addresses").All(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		env.printf("%s\n", u)
		for _, a := range u.Addresses {
			env.printf("    %s\n", a)
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
