package tour

import (
	"fmt"

	"github.com/mickamy/ormtour/orm"
)

// NewRegistry maps User and Address and resolves their relationships.
func NewRegistry() (*orm.Registry, error) {
	reg := orm.NewRegistry()
	if _, err := orm.Map[User](reg); err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	if _, err := orm.Map[Address](reg); err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	if err := reg.Configure(); err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	return reg, nil
}

// User is the mapped user_account row.
type User struct {
	ID        int        `db:"id,primaryKey"`
	Name      string     `db:"name,size:30"`
	Fullname  *string    `db:"fullname"`
	Addresses []*Address `rel:"has_many,foreign_key:user_id,back_populates:User"`
}

func (User) TableName() string { return "user_account" }

func (u *User) String() string {
	return fmt.Sprintf("User(id=%d, name=%q, fullname=%s)", u.ID, u.Name, quoteOrNil(u.Fullname))
}

// Address is the mapped address row.
type Address struct {
	ID           int    `db:"id,primaryKey"`
	EmailAddress string `db:"email_address,notNull"`
	UserID       int    `db:"user_id,notNull,references:user_account.id"`
	User         *User  `rel:"belongs_to,foreign_key:user_id,back_populates:Addresses"`
}

func (Address) TableName() string { return "address" }

func (a *Address) String() string {
	return fmt.Sprintf("Address(id=%d, email_address=%q)", a.ID, a.EmailAddress)
}

func quoteOrNil(s *string) string {
	if s == nil {
		return "nil"
	}
	return fmt.Sprintf("%q", *s)
}
