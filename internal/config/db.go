package config

// DB holds the database configuration settings. GormEngine selects the
// driver (sqlite, mysql or postgres); with sqlite, Name is the file path.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string
}
