package verify

import "time"

// Option is a functional option for configuring a Verifier
type Option func(*Verifier)

// WithConcurrency sets how many batches are probed at once
func WithConcurrency(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithBatchSize sets how many addresses one probe covers
func WithBatchSize(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithTimeout bounds the whole sweep. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		v.timeout = d
	}
}

// WithLoopback includes router loopback addresses in the sweep
func WithLoopback(enabled bool) Option {
	return func(v *Verifier) {
		v.withLoopback = enabled
	}
}
