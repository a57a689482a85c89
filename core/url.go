package core

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// URL is a parsed database URL of the form
//
//	dialect[+driver]://[user[:password]@]host[:port]/database[?query]
//
// SQLite URLs carry a path instead of a host: "sqlite:///:memory:",
// "sqlite:///relative.db" and "sqlite:////absolute/path.db".
type URL struct {
	Dialect  string
	Driver   string
	Username string
	Password string
	Host     string
	Port     string
	Database string
	Query    url.Values
}

// ParseURL parses raw into a URL and resolves the database/sql driver.
func ParseURL(raw string) (*URL, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}

	dialect, driver, _ := strings.Cut(strings.ToLower(scheme), "+")
	u := &URL{Dialect: dialect, Driver: driver}

	switch dialect {
	case "sqlite":
		if err := u.parseSQLite(rest); err != nil {
			return nil, err
		}
	case "postgresql", "postgres", "mysql":
		if err := u.parseNetwork(rest); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown dialect %q", ErrUnsupportedURL, dialect)
	}

	if _, err := u.DriverName(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *URL) parseSQLite(rest string) error {
	path, query, _ := strings.Cut(rest, "?")
	if path != "" && !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: sqlite URL must not have a host: %q", ErrUnsupportedURL, rest)
	}
	u.Database = strings.TrimPrefix(path, "/")
	if query != "" {
		q, err := url.ParseQuery(query)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
		}
		u.Query = q
	}
	return nil
}

func (u *URL) parseNetwork(rest string) error {
	parsed, err := url.Parse("db://" + rest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}
	if parsed.User != nil {
		u.Username = parsed.User.Username()
		u.Password, _ = parsed.User.Password()
	}
	u.Host = parsed.Hostname()
	u.Port = parsed.Port()
	u.Database = strings.TrimPrefix(parsed.Path, "/")
	if len(parsed.Query()) > 0 {
		u.Query = parsed.Query()
	}
	return nil
}

// DriverName returns the database/sql driver registered for the URL's
// dialect and driver pair.
func (u *URL) DriverName() (string, error) {
	switch u.Dialect {
	case "sqlite":
		switch u.Driver {
		case "", "sqlite3", "pysqlite":
			return "sqlite3", nil
		}
	case "postgresql", "postgres":
		switch u.Driver {
		case "", "pgx":
			return "pgx", nil
		case "pq":
			return "postgres", nil
		}
	case "mysql":
		switch u.Driver {
		case "", "mysql":
			return "mysql", nil
		}
	}
	return "", fmt.Errorf("%w: no driver %q for dialect %q", ErrUnsupportedURL, u.Driver, u.Dialect)
}

// SQLDialect resolves the SQL dialect for the URL.
func (u *URL) SQLDialect() Dialect {
	d, _ := DialectByName(u.Dialect)
	return d
}

// IsMemory reports whether the URL names an in-memory SQLite database.
func (u *URL) IsMemory() bool {
	return u.Dialect == "sqlite" && (u.Database == "" || u.Database == ":memory:")
}

// DSN renders the data source name understood by the URL's driver.
func (u *URL) DSN() (string, error) {
	switch u.Dialect {
	case "sqlite":
		return u.sqliteDSN(), nil
	case "postgresql", "postgres":
		return u.postgresDSN(), nil
	case "mysql":
		return u.mysqlDSN(), nil
	default:
		return "", fmt.Errorf("%w: unknown dialect %q", ErrUnsupportedURL, u.Dialect)
	}
}

func (u *URL) sqliteDSN() string {
	name := u.Database
	if u.IsMemory() {
		name = ":memory:"
	}
	if len(u.Query) == 0 {
		return name
	}
	return "file:" + name + "?" + u.Query.Encode()
}

func (u *URL) postgresDSN() string {
	pg := url.URL{
		Scheme:   "postgres",
		Host:     u.hostPort(""),
		Path:     "/" + u.Database,
		RawQuery: u.Query.Encode(),
	}
	if u.Username != "" {
		if u.Password != "" {
			pg.User = url.UserPassword(u.Username, u.Password)
		} else {
			pg.User = url.User(u.Username)
		}
	}
	return pg.String()
}

func (u *URL) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = u.Username
	cfg.Passwd = u.Password
	cfg.Net = "tcp"
	cfg.Addr = u.hostPort("3306")
	cfg.DBName = u.Database
	cfg.ParseTime = true
	for key := range u.Query {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[key] = u.Query.Get(key)
	}
	return cfg.FormatDSN()
}

func (u *URL) hostPort(defaultPort string) string {
	host := u.Host
	if host == "" {
		host = "localhost"
	}
	port := u.Port
	if port == "" {
		port = defaultPort
	}
	if port == "" {
		return host
	}
	return net.JoinHostPort(host, port)
}

// String renders the URL with the password masked.
func (u *URL) String() string {
	scheme := u.Dialect
	if u.Driver != "" {
		scheme += "+" + u.Driver
	}
	if u.Dialect == "sqlite" {
		s := scheme + ":///" + u.Database
		if len(u.Query) > 0 {
			s += "?" + u.Query.Encode()
		}
		return s
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.Username != "" {
		b.WriteString(u.Username)
		if u.Password != "" {
			b.WriteString(":***")
		}
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if u.Port != "" {
		b.WriteByte(':')
		b.WriteString(u.Port)
	}
	b.WriteByte('/')
	b.WriteString(u.Database)
	if len(u.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(u.Query.Encode())
	}
	return b.String()
}
