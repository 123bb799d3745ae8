// Package ledger persists the completion state of a download job.
//
// Two plaintext, append-only files live in the output directory:
//
//   - the completion ledger (downloaded.csv): one destination path per
//     line for every image that was confirmed written. On the next run the
//     item ids embedded in these paths are used to skip finished work.
//   - the failure log (urlnotfound.csv): one message per line for every
//     record whose locator could not be constructed.
//
// Both files are only ever appended to, never rewritten or compacted, and
// every append is synced to disk before it is acknowledged.
package ledger
