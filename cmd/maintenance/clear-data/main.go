package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/config"
	"github.com/smarthive/community-backend/internal/database"
)

// activityTables hold everything residents and the gate produce. Flats and amenities are
// seed data and survive a clear.
var activityTables = []string{
	"amenity_bookings",
	"unknown_visitors",
	"known_visitors",
	"announcements",
	"maintenance_requests",
	"audit_logs",
	"submission_rate_limits",
}

func main() {
	var dbURLFlag string
	var includeUsers bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&includeUsers, "include-users", false, "also delete resident accounts")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env is optional so secrets need not be passed on the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := activityTables
	if includeUsers {
		tables = append(tables, "users")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger.WithField("tables", tables).Info("Connected to database. Truncating tables...")

	truncateSQL := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := db.ExecContext(ctx, truncateSQL); err != nil {
		logger.Fatalf("failed to truncate tables: %v", err)
	}

	logger.Info("Community data cleared")

	for _, t := range tables {
		var count int
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			logger.WithError(err).WithField("table", t).Warn("Could not count rows")
			continue
		}
		logger.WithFields(logrus.Fields{"table": t, "rows": count}).Info("Post-clear row count")
	}
}
