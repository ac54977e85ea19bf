// Package dedupe rejects duplicate form submissions using one-shot
// submission IDs held in a TTL- and size-bounded cache.
package dedupe
