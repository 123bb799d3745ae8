// Package fetch retrieves single remote images with bounded retries.
//
// Each Fetch call sleeps a small random jitter, then runs an attempt loop:
//
//   - transport failures (connection errors, timeouts) double the timeout
//     for the next attempt, so slow links get progressively more patience
//     instead of failing fast;
//   - non-2xx responses are retried with the timeout unchanged;
//   - a 2xx response is streamed to the destination bucket without
//     buffering the payload in memory.
//
// When the attempt budget is spent the item fails with *ExhaustedError.
// The caller decides what exhaustion means; this package never aborts
// anything beyond the one item.
//
// # Usage
//
//	f := fetch.New(bucket, fetch.Options{
//	    BaseTimeout: 180 * time.Second,
//	    MaxAttempts: 5,
//	})
//	key, err := f.Fetch(ctx, url, "7.jpeg")
package fetch
