// Package files discovers input workbooks on disk and archives them
// after processing. It backs the batch mode of the process command,
// which walks a drop directory instead of taking a single file.
package files
