// Package main hosts the indexer entrypoint.
//
// One invocation performs one run: read today's quota, fetch the site's
// sitemap, submit as many URLs as the remaining allowance permits to the
// indexing endpoint (pausing after every tenth call), then write the daily
// summary and charge the attempts to the quota. Progress lines and a final
// summary block go to stdout; structured zap logs go to stderr and the
// configured log file.
//
// Configuration comes from Viper: config.yaml in ., /etc/site-indexer/ or
// $HOME/.site-indexer (or the file named by INDEXER_CONFIG), overridden by
// INDEXER_* environment variables such as INDEXER_INDEXING_DAILY_QUOTA or
// INDEXER_CREDENTIALS_JSON. The binary takes no flags.
//
// Backends:
//   - quota: file (default), redis or postgres, selected by quota.backend.
//   - summary: local directory (default), gcs or memory, selected by storage.backend.
//   - results: always appended to paths.results_log; also published to Pub/Sub
//     when pubsub.project_id and pubsub.topic are set.
//   - metrics: pushed to metrics.pushgateway_url after each run when set.
//
// Setting schedule.cron keeps the process alive and runs on that schedule
// (UTC) until SIGINT or SIGTERM. Concurrent processes sharing the same quota
// store are not coordinated.
//
// Exit status is 0 for completed or skipped runs, 1 for fatal errors
// (credentials, quota or summary storage) and 130 when interrupted.
package main
