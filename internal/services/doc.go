// Package services contains the business logic layer between the HTTP
// transport and the processing packages.
//
// ReportService runs the full report flow: parse an uploaded workbook,
// execute the classification pipeline, write the export files, and
// optionally persist the run to the warehouse.
//
// HealthService reports process and dependency health for the /health
// endpoints.
package services
