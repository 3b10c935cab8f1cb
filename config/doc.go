// Package config loads the runtime settings of the datalake CLI.
//
// Values are merged in this order, later sources winning:
//
//  1. Default values
//  2. Settings file(s), merged left to right (default: datalake.yaml in the
//     working directory, then ~/.datalake)
//  3. Environment variables with the DATALAKE_ prefix
//  4. CLI flags
//
// Keys map to environment variables by upper-casing and replacing dots:
//   - log.level → DATALAKE_LOG_LEVEL
//   - journal.dsn → DATALAKE_JOURNAL_DSN
//   - metrics.textfile → DATALAKE_METRICS_TEXTFILE
//
// API credentials are not settings; they live in the client profile file
// (see package client).
//
//	cfg, err := config.Load(nil, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = config.WithContext(ctx, cfg)
package config
