package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	configlibsql "vamkhelp-backend/lib/configutil/libsql"
	"vamkhelp-backend/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService sets up test telemetry and, when a schema is given, a
// database with the schema applied that is closed on test cleanup.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	database, err := configlibsql.Struct{File: dbpath}.OpenDB(params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	return ServiceResult{
		DB: database,
	}, cleanup
}
