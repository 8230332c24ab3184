// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package store implements the mixer's persistent state: known host keys,
// per-device settings, and the passphrase/password caches, backed by a
// SQLite file opened through modernc.org/sqlite (pure Go, no cgo).
package store

import (
	"database/sql"
	"encoding/base64"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "store")

// schemaVersion is the version this build of the store understands.
// Older stores are migrated up to it in place; newer stores are refused.
const schemaVersion = 1

// Store wraps the single *sql.DB handle; writes are single statements
// (except SaveHostkey, which runs its delete and insert in one
// transaction) run under the database/sql pool's own serialization,
// matching the "implicit connection lock" described in the design notes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path and applies
// any pending schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single-threaded access, per the design notes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS general (
			version INTEGER NOT NULL,
			passphrase TEXT NOT NULL DEFAULT '',
			save_passphrase INTEGER NOT NULL DEFAULT 1
		)`); err != nil {
		return fmt.Errorf("store: migrate general: %w", err)
	}
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS hostkeys (
			name TEXT NOT NULL,
			key_type TEXT NOT NULL,
			key_b64 TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("store: migrate hostkeys: %w", err)
	}
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS devices (
			name TEXT PRIMARY KEY,
			user TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			save_password INTEGER NOT NULL DEFAULT 1
		)`); err != nil {
		return fmt.Errorf("store: migrate devices: %w", err)
	}

	var version int
	row := s.db.QueryRow(`SELECT version FROM general LIMIT 1`)
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		_, err := s.db.Exec(`INSERT INTO general (version) VALUES (?)`, schemaVersion)
		return err
	case nil:
		if version > schemaVersion {
			return fmt.Errorf("store: file schema version %d is newer than this binary (%d)", version, schemaVersion)
		}
		if version < schemaVersion {
			log.WithFields(logrus.Fields{"from": version, "to": schemaVersion}).Info("upgrading store schema")
			if _, err := s.db.Exec(`UPDATE general SET version = ?`, schemaVersion); err != nil {
				return err
			}
		}
		return nil
	default:
		return err
	}
}

// HostkeyVerdict mirrors session.Verdict without importing the mixer
// packages (store sits below them in the dependency graph).
type HostkeyVerdict int

// Verdicts returned by CheckHostkey.
const (
	Match HostkeyVerdict = iota
	NoMatch
	Mismatch
)

// CheckHostkey compares a candidate key against the stored row for name.
func (s *Store) CheckHostkey(name, keyType string, key []byte) (HostkeyVerdict, error) {
	rows, err := s.db.Query(`SELECT key_type, key_b64 FROM hostkeys WHERE name = ?`, name)
	if err != nil {
		return NoMatch, err
	}
	defer rows.Close()

	found := false
	wantB64 := base64.StdEncoding.EncodeToString(key)
	for rows.Next() {
		found = true
		var gotType, gotB64 string
		if err := rows.Scan(&gotType, &gotB64); err != nil {
			return NoMatch, err
		}
		if gotType == keyType && gotB64 == wantB64 {
			return Match, nil
		}
	}
	if !found {
		return NoMatch, nil
	}
	return Mismatch, nil
}

// SaveHostkey deletes any prior rows for name and inserts the new key.
func (s *Store) SaveHostkey(name, keyType string, key []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM hostkeys WHERE name = ?`, name); err != nil {
		return err
	}
	b64 := base64.StdEncoding.EncodeToString(key)
	if _, err := tx.Exec(`INSERT INTO hostkeys (name, key_type, key_b64) VALUES (?, ?, ?)`, name, keyType, b64); err != nil {
		return err
	}
	return tx.Commit()
}

// GetPassphrase returns the single-row passphrase cache.
func (s *Store) GetPassphrase() (string, error) {
	var p string
	err := s.db.QueryRow(`SELECT passphrase FROM general LIMIT 1`).Scan(&p)
	return p, err
}

// SavePassphrase writes p to the cache, unless save_passphrase is 0.
func (s *Store) SavePassphrase(p string) error {
	_, err := s.db.Exec(`UPDATE general SET passphrase = ? WHERE save_passphrase != 0`, p)
	return err
}

// SavePassword writes p to the device row named target, unless that row's
// save_password is 0. A missing row is a no-op, matching "no device
// configured for this target" rather than an error.
func (s *Store) SavePassword(target, p string) error {
	_, err := s.db.Exec(`UPDATE devices SET password = ? WHERE name = ? AND save_password != 0`, p, target)
	return err
}

// Device is a row from the devices table, as consulted by target_lookup.
type Device struct {
	Name     string
	User     string
	Password string
}

// LookupDevice returns the stored device row for name, if any.
func (s *Store) LookupDevice(name string) (Device, bool, error) {
	var d Device
	err := s.db.QueryRow(`SELECT name, user, password FROM devices WHERE name = ?`, name).
		Scan(&d.Name, &d.User, &d.Password)
	if err == sql.ErrNoRows {
		return Device{}, false, nil
	}
	if err != nil {
		return Device{}, false, err
	}
	return d, true, nil
}
