package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBDriver   string // "mysql" or "sqlite"
	DBUser     string // database username (mysql)
	DBPass     string // database password (optional)
	DBHost     string // database host address (mysql)
	DBPort     string // database port number (mysql)
	DBName     string // database name (mysql)
	SQLitePath string // database file (sqlite)

	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // admin access token time-to-live in minutes
	RefreshTTLDays int    // admin refresh token time-to-live in days
	VisitorTTLMin  int    // visitor token time-to-live in minutes
	BcryptCost     int    // bcrypt cost for password hashing
	SetupKey       string // provisioning secret for POST /v1/setup/admin

	GateUnlockDelay   time.Duration // pause between an accepted secret and the unlock
	GateVerifyTimeout time.Duration // bound on the config read during a submit
	InitialPassword   string        // site password seeded into an empty config

	AuditStoreRaw bool // keep attempted secrets verbatim instead of hashed
	AuditBuffer   int  // pending attempts before new ones are dropped

	StorageRoot   string // directory holding the storage buckets
	PublicBaseURL string // prefix of the public URLs handed out for stored objects
	RabbitURL     string // AMQP url; empty disables attempt events
	LogDir        string // directory of the access log written by the consumer
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is applied first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	c := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		DBDriver: envStr("DB_DRIVER", "mysql"),

		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		VisitorTTLMin:  envInt("VISITOR_TOKEN_TTL_MIN", 12*60),
		BcryptCost:     mustInt("BCRYPT_COST"),
		SetupKey:       must("SETUP_KEY"),

		GateUnlockDelay:   envDur("GATE_UNLOCK_DELAY", 1200*time.Millisecond),
		GateVerifyTimeout: envDur("GATE_VERIFY_TIMEOUT", 5*time.Second),
		InitialPassword:   os.Getenv("SITE_PASSWORD_INITIAL"),

		AuditStoreRaw: envBool("AUDIT_STORE_RAW_ATTEMPTS", false),
		AuditBuffer:   envInt("AUDIT_BUFFER", 256),

		StorageRoot:   envStr("STORAGE_ROOT", "storage"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		LogDir:        envStr("LOG_DIR", "logs"),
	}

	switch c.DBDriver {
	case "mysql":
		c.DBUser = must("DB_USER")
		c.DBPass = os.Getenv("DB_PASS") // empty allowed
		c.DBHost = must("DB_HOST")
		c.DBPort = must("DB_PORT")
		c.DBName = must("DB_NAME")
	case "sqlite":
		c.SQLitePath = envStr("SQLITE_PATH", "casefiles.db")
	default:
		log.Fatalf("invalid DB_DRIVER: %q (want mysql or sqlite)", c.DBDriver)
	}
	return c
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
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
