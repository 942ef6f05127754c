package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"migrate", "import-legacy", "verify-legacy", "sweep-files", "create-token"} {
		assert.True(t, names[name], name)
	}

	migrate, _, err := rootCmd.Find([]string{"migrate", "status"})
	assert.NoError(t, err)
	assert.Equal(t, "status", migrate.Name())
}

func TestLoadMappingDefaults(t *testing.T) {
	mappingPath = ""
	m, err := loadMapping()
	assert.NoError(t, err)
	assert.Equal(t, "tfs_user", m.Users.Table)

	mappingPath = "does-not-exist.yaml"
	t.Cleanup(func() { mappingPath = "" })
	_, err = loadMapping()
	assert.Error(t, err)
}
