package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"vamkhelp-backend/lib/configutil"
)

var (
	setupTestLock         sync.Mutex
	setupTestEnvironments = map[string]bool{}
)

// SetupForTesting sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once per service name.
func SetupForTesting(t testing.TB, serviceName string) func() {
	setupTestLock.Lock()
	defer setupTestLock.Unlock()

	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(testing.Verbose())

	tel, err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Log("telemetry shutdown:", err)
		}
	}
}

// SetupFromEnv searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it as a config to
// setup telemetry. Without the file, telemetry stays a no-op.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		slog.Debug("telemetry.json5 not found, telemetry export disabled", "service", serviceName)
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, fmt.Errorf("read telemetry config: %w", err)
	}
	return Setup(ctx, serviceName, config)
}
