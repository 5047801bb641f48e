package main

import (
	"context"
	"vamkhelp-backend/cmd/vamk/commands"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "vamk")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
