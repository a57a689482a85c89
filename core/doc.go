// Package core is the SQL expression and execution layer: database URLs
// and dialects, the Engine and its Connections, textual statements with
// ":name" bind parameters, and buffered Results.
//
// A typical "commit as you go" exchange:
//
//	engine, _ := core.Create("sqlite:///:memory:")
//	conn, _ := engine.Connect(ctx)
//	defer conn.Close()
//	conn.Execute(ctx, core.Text("CREATE TABLE some_table (x int, y int)"))
//	conn.Execute(ctx, core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
//	    core.Params{"x": 1, "y": 1}, core.Params{"x": 2, "y": 4})
//	conn.Commit()
//
// and the "begin once" form, which commits when fn returns nil:
//
//	engine.Begin(ctx, func(conn *core.Connection) error {
//	    _, err := conn.Execute(ctx, core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
//	        core.Params{"x": 6, "y": 8})
//	    return err
//	})
package core
