// Package app wires the exchange report server together: configuration,
// logging, telemetry, the report pipeline services, and the chi router.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Open the optional warehouse and create the services
//	4. Set up HTTP handlers and middleware
//	5. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests,
// closes the warehouse, and flushes telemetry before returning.
package app
