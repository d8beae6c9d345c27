package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced at startup; the rest
// fall back to defaults.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Bootstrap administrator, created on startup when both are set.
	AdminEmail    string
	AdminPassword string

	EventDate     string         // YYYY-MM-DD; seat lookup opens on this day
	EventLocation *time.Location // EVENT_TIMEZONE, defaults to UTC

	SeatDefaultCapacity int           // capacity of groups missing from the catalog
	SeatCatalogFile     string        // optional YAML catalog
	AssignTimeout       time.Duration // budget of one assignment run
	AssignLockTTL       time.Duration // lifetime of the run lock
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		EventDate:     os.Getenv("EVENT_DATE"),
		EventLocation: location(envStr("EVENT_TIMEZONE", "UTC")),

		SeatDefaultCapacity: envInt("SEAT_DEFAULT_CAPACITY", 90),
		SeatCatalogFile:     os.Getenv("SEAT_CATALOG_FILE"),
		AssignTimeout:       envDur("ASSIGN_TIMEOUT", 30*time.Second),
		AssignLockTTL:       envDur("ASSIGN_LOCK_TTL", 2*time.Minute),
	}
}

// DBConfig is the subset of Load used by tools that only talk to MySQL.
func DBConfig() Config {
	return Config{
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"),
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		SeatDefaultCapacity: envInt("SEAT_DEFAULT_CAPACITY", 90),
		SeatCatalogFile:     os.Getenv("SEAT_CATALOG_FILE"),
		AssignTimeout:       envDur("ASSIGN_TIMEOUT", 30*time.Second),
		AssignLockTTL:       envDur("ASSIGN_LOCK_TTL", 2*time.Minute),
	}
}

// EventDay returns the configured event date at midnight in the event time
// zone.  ok is false when EVENT_DATE is unset or malformed.
func (c Config) EventDay() (t time.Time, ok bool) {
	if c.EventDate == "" {
		return time.Time{}, false
	}
	loc := c.EventLocation
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", c.EventDate, loc)
	if err != nil {
		log.Printf("config: invalid EVENT_DATE %q: %v", c.EventDate, err)
		return time.Time{}, false
	}
	return t, true
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: unknown EVENT_TIMEZONE %q, using UTC", name)
		return time.UTC
	}
	return loc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
