package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStamp(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	var r Record
	r.Stamp(now)
	require.NotEmpty(t, r.ID)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now, r.UpdatedAt)

	id := r.ID
	later := now.Add(time.Minute)
	r.Stamp(later)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, later, r.UpdatedAt)

	var other Record
	other.Stamp(now)
	assert.NotEqual(t, r.ID, other.ID)
}

func TestRoleSetScanAndMembership(t *testing.T) {
	var set RoleSet
	require.NoError(t, set.Scan([]byte("{prefect,student}")))
	assert.True(t, set.Has(RolePrefect))
	assert.False(t, set.Has(RoleAdmin))
	assert.True(t, set.HasAny(RoleAdmin, RoleStudent))

	v, err := set.Value()
	require.NoError(t, err)
	assert.Equal(t, "{\"prefect\",\"student\"}", v)
}

func TestEnumsRejectUnknownValues(t *testing.T) {
	assert.True(t, ComplaintStatusInProgress.Valid())
	assert.False(t, ComplaintStatus("closed").Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, IncidentSeverity("severe").Valid())
	assert.False(t, AttendanceStatus("H").Valid())
	_, err := ParseRole("superadmin")
	assert.Error(t, err)
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Page: 0, PageSize: 500}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
}

func TestNewAuditLog(t *testing.T) {
	entry := NewAuditLog(Actor{ID: "u1", IP: "10.0.0.1", UserAgent: "ua"}, AuditActionCreate, "complaints", "c1", map[string]string{"title": "x"})
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "c1", *entry.ResourceID)
	assert.JSONEq(t, `{"title":"x"}`, string(entry.NewValues))
	assert.Equal(t, "10.0.0.1", entry.IPAddress)

	anonymous := NewAuditLog(Actor{}, AuditActionDownload, "export", "", nil)
	assert.Nil(t, anonymous.UserID)
	assert.Nil(t, anonymous.ResourceID)
	assert.Nil(t, anonymous.NewValues)
}
