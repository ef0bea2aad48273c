// Package datasource replays an accelerometer log and a GPS log as one
// endless feed of combined records.
//
// # Lifecycle
//
// A [Datasource] is the unopened state. It only knows where the two CSV files
// live and can be opened in one of two ways:
//
//	ds := datasource.New(osfs.New("."), "data/accelerometer.csv", "data/gps.csv")
//
//	r, err := ds.Open()              // blocking discipline
//	ar, err := ds.OpenAsync(ctx)     // suspension-based discipline
//
// Opening acquires both files or neither. The open readers expose Next and
// Close; Close releases both files and hands back the unopened Datasource so
// the same sources can be opened again from their first data row. There is no
// way to call Next on a Datasource.
//
// # Pairing and Rewind
//
// Each call to Next reads one row from the accelerometer stream and then one
// row from the GPS stream and pairs them by position. Before the first row of
// a cycle is read, the stream position is recorded as a mark. When either
// stream runs out, both streams are sought back to their marks and the read
// is retried within the same call, so the shorter file decides the cycle
// length and the two files never drift apart. A file with no data rows makes
// every call fail with a [CycleBoundaryError] instead of spinning.
//
// # Disciplines
//
// [Reader] performs all file I/O on the calling goroutine. [AsyncReader]
// hands every open, read and seek to a goroutine that owns the file and waits
// for it or for the caller's context, whichever comes first. Both run the
// same pairing code over the rowSource interface.
//
// # Errors
//
// See errors.go. [NeedsReopen] reports whether an error leaves the reader
// unusable; [Code] gives a short classification for logs and metrics.
//
// # Observation
//
// The package never logs. Rewinds and failures are reported to an
// [Observer] supplied with [WithObserver].
package datasource
