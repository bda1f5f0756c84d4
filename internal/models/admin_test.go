package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAdmin_seedsStock(t *testing.T) {
	a := NewAdmin()
	assert.Equal(t, []string{StockUsername}, a.Usernames())
	assert.True(t, a.Contains("stock"))
}

func TestAdmin_AddUsername(t *testing.T) {
	a := NewAdmin()

	assert.True(t, a.AddUsername("alice"))
	assert.False(t, a.AddUsername("alice"), "duplicate should fail")
	assert.False(t, a.AddUsername(AdminUsername), "reserved admin name should fail")
	assert.Equal(t, []string{"stock", "alice"}, a.Usernames())
}

func TestAdmin_RemoveUsername(t *testing.T) {
	a := NewAdmin()
	a.AddUsername("alice")

	assert.True(t, a.RemoveUsername("alice"))
	assert.False(t, a.RemoveUsername("alice"))
	assert.False(t, a.Contains("alice"))
}

func TestRestoreAdmin(t *testing.T) {
	a := RestoreAdmin([]string{"stock", "bob", "admin", "bob"})
	assert.Equal(t, []string{"stock", "bob"}, a.Usernames())
}
