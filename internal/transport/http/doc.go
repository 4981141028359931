// Package http contains the HTTP handlers for the report API.
//
// ReportHandler accepts workbook uploads, triggers report generation, and
// serves the generated files. HealthHandler exposes the health and
// readiness endpoints. Handlers translate service errors into RFC 7807
// problem responses through the shared error handler.
package http
