// Package config loads runtime configuration for the journal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: MEMOJ_* variables, falling back to a .env file in the
//     working directory. Secrets (session token, S3 keys) usually live here.
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   address:port of the document store gRPC endpoint
//	-d string   data directory (cache database, signal files, logs)
//	-i int      online check interval (seconds)
//	-s string   sort order: next-occurrence or date
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so "3s" and integer nanoseconds both work:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "data_dir": ".memojournal",
//	  "cache_ttl": "10m",
//	  "sort_order": "date",
//	  "upload": {"concurrency": 3, "max_retries": 3, "retry_base_delay": "1s"},
//	  "s3": {"bucket": "journal", "endpoint": "http://127.0.0.1:9000"}
//	}
package config
