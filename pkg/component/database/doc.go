// Package database opens the relational store used by the IAM services.
//
// One Client covers the three supported dialects: MySQL and PostgreSQL for
// deployments, SQLite (pure Go, no cgo) for local runs and tests. All three
// share the connection pool settings and the GORM logger that forwards to
// the unified logger.
//
// Example usage:
//
//	opts := db.NewOptions()
//	opts.Driver = db.DriverPostgres
//	opts.Host = "localhost"
//
//	client, err := database.New(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.DB().AutoMigrate(&model.User{})
package database
