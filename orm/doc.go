// Package orm maps Go structs to tables and persists them through a
// Session.
//
// Mapping is declarative: struct fields carry `db` tags for columns and
// `rel` tags for relationships, and Map registers the type in a Registry
// whose MetaData can create the tables.
//
//	type User struct {
//	    ID        int        `db:"id,primaryKey"`
//	    Name      string     `db:"name,size:30"`
//	    Fullname  *string    `db:"fullname"`
//	    Addresses []*Address `rel:"has_many,foreign_key:user_id,back_populates:User"`
//	}
//
//	type Address struct {
//	    ID           int    `db:"id,primaryKey"`
//	    EmailAddress string `db:"email_address,notNull"`
//	    UserID       int    `db:"user_id,notNull,references:user_account.id"`
//	    User         *User  `rel:"belongs_to,foreign_key:user_id,back_populates:Addresses"`
//	}
//
//	reg := orm.NewRegistry()
//	orm.MustMap[User](reg)
//	orm.MustMap[Address](reg)
//	err := reg.MetaData().CreateAll(ctx, engine)
//
// A Session tracks the objects it is given or loads, keeps one object
// per primary key, and writes inserts, updates and deletes in dependency
// order when flushed or committed.
//
//	session := orm.NewSession(engine, orm.WithRegistry(reg))
//	defer session.Close()
//	session.Add(&User{Name: "spongebob"})
//	err := session.Commit(ctx)
//
//	users, err := orm.Select[User](session).Preload("Addresses").All(ctx)
package orm
