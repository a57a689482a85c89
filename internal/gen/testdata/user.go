package testdata

type User struct {
	ID        int        `db:"id,primaryKey"`
	Name      string     `db:"name,size:30"`
	Fullname  *string    `db:"fullname"`
	Addresses []*Address `rel:"has_many,foreign_key:user_id,back_populates:User"`
	internal  string     // unexported, no tag — skipped
}

func (User) TableName() string { return "user_account" }

type Address struct {
	ID           int    `db:"id,primaryKey"`
	UserID       int    `db:"user_id,notNull,references:user_account.id"`
	EmailAddress string `db:"email_address,notNull"`
	User         *User  `rel:"belongs_to,foreign_key:user_id,back_populates:Addresses"`
}

func (*Address) TableName() string { return "address" }
