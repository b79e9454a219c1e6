// Package db carries the embedded schema applied at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for the orders, coupons and
// api_keys tables. It is applied on every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
