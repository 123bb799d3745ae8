// Package config defines configuration structures for the sdssextract CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (SDSS_ prefix)
//   - YAML configuration file
//
// Precedence is file < environment < flags. All values are threaded
// explicitly into the components that use them; there is no process-wide
// mutable configuration.
//
// # Structure
//
//	type Config struct {
//	    Input     string
//	    Output    string
//	    Bucket    string
//	    BatchSize int
//	    Progress  bool
//	    Columns   ColumnConfig
//	    Cutout    CutoutConfig
//	    Retry     RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts    int
//	    BaseTimeout time.Duration
//	    JitterMin   time.Duration
//	    JitterMax   time.Duration
//	}
package config
