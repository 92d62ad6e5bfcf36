/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quayside/modelstore/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
region: eu-west-1
endpoint: http://localhost:8000
namespace: staging_
requestTimeout: 5s
maxAttempts: 4
`)
	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	assert.Equal(t, "staging_", cfg.Namespace)
	assert.Equal(t, Duration(5*time.Second), cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.MaxAttempts)
}

func TestFromFileErrors(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "region: [not\n")
	_, err = FromFile(path)
	assert.Error(t, err)

	path = writeFile(t, "badduration.yaml", "requestTimeout: soon\n")
	_, err = FromFile(path)
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MODELSTORE_REGION", "us-east-2")
	t.Setenv("MODELSTORE_ENDPOINT", "http://localhost:8000")
	t.Setenv("MODELSTORE_NAMESPACE", "")
	t.Setenv("MODELSTORE_TESTING", "true")
	t.Setenv("MODELSTORE_REQUEST_TIMEOUT", "2s")
	t.Setenv("MODELSTORE_MAX_ATTEMPTS", "5")

	cfg := FromEnv()
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	assert.True(t, cfg.Testing)
	assert.Equal(t, Duration(2*time.Second), cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.MaxAttempts)
}

func TestPrefixPrecedence(t *testing.T) {
	assert.Equal(t, "", Config{}.Prefix())
	assert.Equal(t, "test_", Config{Testing: true}.Prefix())
	assert.Equal(t, "staging_", Config{Namespace: "staging_", Testing: true}.Prefix(),
		"an explicit namespace wins over the testing flag")
}

func TestStoreOptions(t *testing.T) {
	assert.Empty(t, Config{}.StoreOptions())
	assert.Len(t, Config{MaxAttempts: 5}.StoreOptions(), 1)
	assert.Len(t, Config{MaxAttempts: 5, RequestTimeout: Duration(time.Second)}.StoreOptions(), 2)
}

func TestLoadManifest(t *testing.T) {
	path := writeFile(t, "tables.yaml", `
namespace: test_
tables:
  - name: companies
    hashKey: {name: id}
    indexes:
      - name: name-index
        hashKey: {name: name}
  - name: employees
    hashKey: {name: company_id}
    rangeKey: {name: id}
  - name: events
    hashKey: {name: stream}
    rangeKey: {name: seq, type: N}
`)
	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "test_", manifest.Namespace)
	require.Len(t, manifest.Tables, 3)

	bindings, err := manifest.Bindings(manifest.Namespace)
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	companies := bindings[0]
	assert.Equal(t, "test_companies", companies.Table)
	assert.Equal(t, "id", companies.Keys.Hash.Name)
	assert.Nil(t, companies.Keys.Range)
	require.Contains(t, companies.Indexes, "name-index")
	assert.Equal(t, "name", companies.Indexes["name-index"].Hash.Name)

	employees := bindings[1]
	assert.Equal(t, "test_employees", employees.Table)
	require.NotNil(t, employees.Keys.Range)
	assert.Equal(t, "id", employees.Keys.Range.Name)

	events := bindings[2]
	require.NotNil(t, events.Keys.Range)
	assert.Equal(t, "N", string(events.Keys.Range.Type))
}

func TestManifestValidation(t *testing.T) {
	_, err := Manifest{Tables: []TableSpec{{HashKey: KeySpec{Name: "id"}}}}.Bindings("")
	assert.True(t, apperrors.IsValidation(err), "missing table name, got %v", err)

	_, err = Manifest{Tables: []TableSpec{{Name: "t"}}}.Bindings("")
	assert.True(t, apperrors.IsValidation(err), "missing hash key name, got %v", err)

	_, err = Manifest{Tables: []TableSpec{{
		Name:    "t",
		HashKey: KeySpec{Name: "id", Type: "BOOL"},
	}}}.Bindings("")
	assert.True(t, apperrors.IsValidation(err), "unsupported key type, got %v", err)
}
