package config

// DB holds the MySQL connection settings for the user, role and settings
// store. Extras is appended verbatim to the DSN query string.
type DB struct {
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}
