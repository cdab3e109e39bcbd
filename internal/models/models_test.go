package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateYearsOn(t *testing.T) {
	on := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		birth string
		want  int
	}{
		{"2013-10-18", 13},
		{"2013-10-19", 12},
		{"2013-11-01", 12},
		{"2013-09-30", 13},
		{"2016-10-18", 10},
		{"2008-02-29", 18},
	}
	for _, tt := range tests {
		t.Run(tt.birth, func(t *testing.T) {
			d, err := ParseDate(tt.birth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.YearsOn(on))
		})
	}
}

func TestDateJSON(t *testing.T) {
	var holder struct {
		BirthDate *Date `json:"birth_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":"2000-01-31"}`), &holder))
	require.NotNil(t, holder.BirthDate)
	assert.Equal(t, "2000-01-31", holder.BirthDate.String())

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"birth_date":"2000-01-31"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"birth_date":"31/01/2000"}`), &holder))
}

func TestAddressType(t *testing.T) {
	for _, name := range []string{"shipping", "billing", "both"} {
		parsed, err := ParseAddressType(name)
		require.NoError(t, err)
		assert.True(t, parsed.Valid())
		assert.Equal(t, name, parsed.String())
	}
	_, err := ParseAddressType("office")
	assert.Error(t, err)

	_, err = json.Marshal(AddressType(0))
	assert.Error(t, err)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Alice A", User{FirstName: "Alice", LastName: "A"}.FullName())
	assert.Equal(t, "Alice", User{FirstName: "Alice"}.FullName())
}

func TestCustomerGroupQualifies(t *testing.T) {
	g := CustomerGroup{MinOrders: 10, MinSpent: 500, IsActive: true}
	assert.True(t, g.Qualifies(10, 500))
	assert.False(t, g.Qualifies(9, 1000))
	g.IsActive = false
	assert.False(t, g.Qualifies(100, 10000))
}

func TestRole(t *testing.T) {
	for _, r := range []Role{RoleCustomer, RoleStaff, RoleSuperuser} {
		parsed, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRole("admin")
	assert.Error(t, err)

	assert.False(t, RoleCustomer.IsStaff())
	assert.True(t, RoleStaff.IsStaff())
	assert.True(t, RoleSuperuser.IsStaff())
}
