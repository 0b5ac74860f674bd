package main

import (
	"bytes"
	"testing"

	"skillswap/internal/database"

	"github.com/stretchr/testify/assert"
)

func TestPrintStatus(t *testing.T) {
	status := &database.SchemaStatus{
		SchemaPlan: database.SchemaPlan{Mode: database.SchemaModeSQL, Environment: "production", RunSQL: true},
		Migrations: []database.MigrationState{
			{Migration: database.Migration{Version: 1, Name: "init_schema"}, Applied: true},
			{Migration: database.Migration{Version: 2, Name: "swaps_and_feedback"}},
		},
		Unknown: []int{7},
	}

	var out bytes.Buffer
	printStatus(&out, status)

	text := out.String()
	assert.Contains(t, text, "SkillSwap schema: mode=sql env=production sql=true automigrate=false")
	assert.Contains(t, text, "[x] 000001_init_schema")
	assert.Contains(t, text, "users, skills, user skills, availability")
	assert.Contains(t, text, "[ ] 000002_swaps_and_feedback")
	assert.Contains(t, text, "pending-pair index")
	assert.Contains(t, text, "[?] 000007")
}

func TestMigrationSummaryCoversShippedMigrations(t *testing.T) {
	for _, m := range database.GetMigrations() {
		assert.NotEmpty(t, migrationSummary[m.Name], m.String())
	}
}
