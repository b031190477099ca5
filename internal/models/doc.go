// Package models holds the participant, photo, ledger and export types shared across packages.
package models
