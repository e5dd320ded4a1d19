// Package config provides configuration structures and utilities for docketrocket.
// It defines the target docket page, the table selectors, download and ledger
// locations, pacing of browser actions, and report preferences.
package config
